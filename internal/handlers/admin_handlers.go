package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/pawshop-golang/internal/catalog"
	"github.com/01moynul/pawshop-golang/internal/models"
)

//
// --- Admin: Product Management ---
//

// GetAllProducts is the handler for GET /v1/admin/products
func (h *Handlers) GetAllProducts(c *gin.Context) {
	products, err := h.Catalog.AllProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProduct is the handler for POST /v1/admin/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input catalog.ProductInput
	if !bindJSON(c, &input) {
		return
	}
	product, err := h.Catalog.CreateProduct(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct is the handler for PUT /v1/admin/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	// 1. --- Get IDs ---
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	// 2. --- Bind Input ---
	var input catalog.ProductInput
	if !bindJSON(c, &input) {
		return
	}

	// 3. --- Update & Reload ---
	if _, err := h.Catalog.UpdateProduct(c.Request.Context(), id, input); err != nil {
		respondError(c, err)
		return
	}
	product, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct is the handler for DELETE /v1/admin/products/:id
// Orders keep their own snapshot of the product.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

type RestockInput struct {
	Delta int `json:"delta" binding:"required"`
}

// RestockProduct is the handler for POST /v1/admin/products/:id/restock
// A negative delta writes stock off; the result never goes below zero.
func (h *Handlers) RestockProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input RestockInput
	if !bindJSON(c, &input) {
		return
	}

	level, err := h.Catalog.Restock(c.Request.Context(), id, input.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"productId": level.ProductID,
		"stock":     level.Quantity,
		"lowStock":  level.Low(),
	})
}

//
// --- Admin: Campaigns ---
//

type CampaignInput struct {
	Title           string     `json:"title" binding:"required,max=200"`
	Description     string     `json:"description" binding:"max=2000"`
	DiscountPercent int        `json:"discountPercent" binding:"min=0,max=100"`
	Image           string     `json:"image" binding:"max=500"`
	Active          *bool      `json:"active"`
	StartsAt        *time.Time `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt"`
}

func (in CampaignInput) campaign() (*models.Campaign, bool) {
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return nil, false
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &models.Campaign{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		DiscountPercent: in.DiscountPercent,
		Image:           strings.TrimSpace(in.Image),
		Active:          active,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
	}, true
}

func bindCampaign(c *gin.Context) (*models.Campaign, bool) {
	var input CampaignInput
	if !bindJSON(c, &input) {
		return nil, false
	}
	campaign, ok := input.campaign()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endsAt must not be before startsAt", "field": "endsAt"})
		return nil, false
	}
	return campaign, true
}

// GetAllCampaigns is the handler for GET /v1/admin/campaigns
func (h *Handlers) GetAllCampaigns(c *gin.Context) {
	campaigns, err := h.Store.ListCampaigns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// CreateCampaign is the handler for POST /v1/admin/campaigns
func (h *Handlers) CreateCampaign(c *gin.Context) {
	campaign, ok := bindCampaign(c)
	if !ok {
		return
	}
	if err := h.Store.CreateCampaign(c.Request.Context(), campaign); err != nil {
		respondError(c, err)
		return
	}
	h.Catalog.CampaignsChanged()
	c.JSON(http.StatusCreated, campaign)
}

// UpdateCampaign is the handler for PUT /v1/admin/campaigns/:id
func (h *Handlers) UpdateCampaign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	campaign, ok := bindCampaign(c)
	if !ok {
		return
	}
	campaign.ID = id
	if err := h.Store.UpdateCampaign(c.Request.Context(), campaign); err != nil {
		respondError(c, err)
		return
	}
	h.Catalog.CampaignsChanged()
	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign is the handler for DELETE /v1/admin/campaigns/:id
func (h *Handlers) DeleteCampaign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteCampaign(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.Catalog.CampaignsChanged()
	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted"})
}
