package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/store"
)

//
// --- Checkout & Public Order Lookup ---
//

// Checkout is the handler for POST /v1/checkout
// It turns the session cart into an order and returns the payment chat link.
func (h *Handlers) Checkout(c *gin.Context) {
	// 1. --- Bind Contact Details ---
	var contact models.Contact
	if !bindJSON(c, &contact) {
		return
	}

	s, ok := currentSession(c)
	if !ok {
		return
	}

	// 2. --- Place Order ---
	placement, err := h.Orders.PlaceOrder(c.Request.Context(), s.ID, contact)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Order placed",
		"order":      placement.Order.View(),
		"paymentUrl": placement.PaymentURL,
	})
}

// LookupOrder is the handler for GET /v1/orders/:code
// Anyone holding the code may see the order.
func (h *Handlers) LookupOrder(c *gin.Context) {
	order, err := h.Orders.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.View())
}

//
// --- Admin Order Management ---
//

type ListOrdersQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// ListOrders is the handler for GET /v1/admin/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oq := store.OrderQuery{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status, ok := models.ParseOrderStatus(q.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "field": "status"})
			return
		}
		oq.Status = status
	}

	orders, err := h.Store.ListOrders(c.Request.Context(), oq)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, orders[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// GetOrderByCode is the handler for GET /v1/admin/orders/code/:code
func (h *Handlers) GetOrderByCode(c *gin.Context) {
	order, err := h.Store.GetOrderByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.View())
}

type UpdateOrderStatusInput struct {
	Status          string  `json:"status" binding:"required"`
	ShippingCompany *string `json:"shippingCompany" binding:"omitempty,max=100"`
	TrackingNumber  *string `json:"trackingNumber" binding:"omitempty,max=100"`
}

// UpdateOrderStatus is the handler for PATCH /v1/admin/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	// 1. --- Get IDs ---
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// 2. --- Bind Input ---
	var input UpdateOrderStatusInput
	if !bindJSON(c, &input) {
		return
	}
	var shipping *models.Shipping
	if input.ShippingCompany != nil || input.TrackingNumber != nil {
		shipping = &models.Shipping{Company: input.ShippingCompany, TrackingNumber: input.TrackingNumber}
	}

	// 3. --- Apply Transition ---
	order, err := h.Orders.SetStatus(c.Request.Context(), orderID, input.Status, shipping)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.View())
}

type UpdateShippingFieldInput struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value" binding:"max=100"`
}

// UpdateShippingField is the handler for PATCH /v1/admin/orders/:id/shipping
// An empty value clears the field.
func (h *Handlers) UpdateShippingField(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input UpdateShippingFieldInput
	if !bindJSON(c, &input) {
		return
	}

	order, err := h.Orders.SetShippingField(c.Request.Context(), orderID, input.Field, input.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.View())
}
