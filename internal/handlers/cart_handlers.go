package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/pawshop-golang/internal/cart"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/session"
)

//
// --- Cart Handlers (session cart) ---
//

// CartView is the JSON shape of a visitor's cart.
type CartView struct {
	Items []models.CartEntry `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Count int                `json:"count"`
}

func cartView(entries []models.CartEntry) CartView {
	if entries == nil {
		entries = []models.CartEntry{}
	}
	return CartView{Items: entries, Total: cart.Total(entries), Count: cart.Count(entries)}
}

// saveCart stores entries in the session and answers with the new cart.
func (h *Handlers) saveCart(c *gin.Context, s *session.Session, entries []models.CartEntry) {
	if err := h.Sessions.SetCart(c.Request.Context(), s.ID, entries); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(entries))
}

// GetCart is the handler for GET /v1/cart
func (h *Handlers) GetCart(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartView(cart.Normalize(s.Cart)))
}

// AddToCartInput defines the JSON for adding an item to the cart.
type AddToCartInput struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"omitempty,gt=0"`
}

// AddToCart is the handler for POST /v1/cart/items
// The unit price is captured now and kept until checkout.
func (h *Handlers) AddToCart(c *gin.Context) {
	// 1. --- Bind Input ---
	var input AddToCartInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	s, ok := currentSession(c)
	if !ok {
		return
	}

	// 2. --- Load Product ---
	p, err := h.Catalog.Product(c.Request.Context(), input.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !p.InStock {
		c.JSON(http.StatusConflict, gin.H{"error": "Product is out of stock"})
		return
	}

	// 3. --- Save Cart ---
	h.saveCart(c, s, cart.Add(s.Cart, p, input.Quantity))
}

type UpdateCartItemInput struct {
	Quantity int `json:"quantity" binding:"required"`
}

// UpdateCartItem is the handler for PUT /v1/cart/items/:index
// Quantities below one are raised to one.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	index, ok := paramIndex(c)
	if !ok {
		return
	}
	var input UpdateCartItemInput
	if !bindJSON(c, &input) {
		return
	}
	s, ok := currentSession(c)
	if !ok {
		return
	}

	entries, err := cart.UpdateQuantity(s.Cart, index, input.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	h.saveCart(c, s, entries)
}

// RemoveCartItem is the handler for DELETE /v1/cart/items/:index
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	index, ok := paramIndex(c)
	if !ok {
		return
	}
	s, ok := currentSession(c)
	if !ok {
		return
	}

	entries, err := cart.Remove(s.Cart, index)
	if err != nil {
		respondError(c, err)
		return
	}
	h.saveCart(c, s, entries)
}

// ClearCart is the handler for DELETE /v1/cart
func (h *Handlers) ClearCart(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	h.saveCart(c, s, nil)
}

// ToggleTheme is the handler for POST /v1/theme
func (h *Handlers) ToggleTheme(c *gin.Context) {
	var theme string
	if err := h.Sessions.Update(c.Request.Context(), func(s *session.Session) { theme = s.ToggleTheme() }); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

func paramIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index", "field": "index"})
		return 0, false
	}
	return index, true
}
