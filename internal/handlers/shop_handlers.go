package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/pawshop-golang/internal/middleware"
	"github.com/01moynul/pawshop-golang/internal/models"
)

//
// --- Wishlist ---
//

// GetWishlist is the handler for GET /v1/wishlist
func (h *Handlers) GetWishlist(c *gin.Context) {
	items, err := h.Store.ListWishlist(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToWishlist is the handler for POST /v1/wishlist/:id
// Adding a product twice is a no-op.
func (h *Handlers) AddToWishlist(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.AddToWishlist(c.Request.Context(), middleware.UserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to wishlist"})
}

// RemoveFromWishlist is the handler for DELETE /v1/wishlist/:id
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.RemoveFromWishlist(c.Request.Context(), middleware.UserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
}

//
// --- Reviews ---
//

// GetReviews is the handler for GET /v1/products/:id/reviews
func (h *Handlers) GetReviews(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.Store.ListReviews(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

type CreateReviewInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// CreateReview is the handler for POST /v1/products/:id/reviews
// One review per user and product; a second one is a 409.
func (h *Handlers) CreateReview(c *gin.Context) {
	// 1. --- Get IDs ---
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// 2. --- Bind Input ---
	var input CreateReviewInput
	if !bindJSON(c, &input) {
		return
	}

	// 3. --- Store Review ---
	review := &models.Review{
		ProductID: productID,
		UserID:    middleware.UserID(c),
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}
	if err := h.Store.CreateReview(c.Request.Context(), review); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}
