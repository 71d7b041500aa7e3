package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/pawshop-golang/internal/catalog"
	"github.com/01moynul/pawshop-golang/internal/session"
)

// CatalogQuery is bound from the query string of GET /v1/products.
type CatalogQuery struct {
	Category string `form:"category"`
	Brand    string `form:"brand"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	SubTag   string `form:"sub"`
	MainTag  string `form:"main"`
	Sort     string `form:"sort"`
}

// GetCatalog is the handler for GET /v1/products
// The category comes from the query or, failing that, the visitor's session.
func (h *Handlers) GetCatalog(c *gin.Context) {
	// 1. --- Bind Query ---
	var q CatalogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := catalog.Filter{Brand: q.Brand, SubTag: q.SubTag, MainTag: q.MainTag, Sort: q.Sort, Category: q.Category}
	var ok bool
	if filter.MinPrice, ok = parsePrice(c, "min_price", q.MinPrice); !ok {
		return
	}
	if filter.MaxPrice, ok = parsePrice(c, "max_price", q.MaxPrice); !ok {
		return
	}

	// 2. --- Fall Back To Session Category ---
	if strings.TrimSpace(filter.Category) == "" {
		if s, ok := session.Current(c.Request.Context()); ok {
			filter.Category = s.Category
		}
	}

	// 3. --- Query Catalog ---
	listing, err := h.Catalog.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func parsePrice(c *gin.Context, field, raw string) (*decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be a number", "field": field})
		return nil, false
	}
	return &d, true
}

type SelectCategoryInput struct {
	Category string `json:"category" binding:"required,max=100"`
}

// SelectCategory is the handler for POST /v1/category
// It remembers the visitor's chosen category in the session.
func (h *Handlers) SelectCategory(c *gin.Context) {
	var input SelectCategoryInput
	if !bindJSON(c, &input) {
		return
	}
	category := strings.TrimSpace(input.Category)
	if err := h.Sessions.Update(c.Request.Context(), func(s *session.Session) { s.Category = category }); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// GetProduct is the handler for GET /v1/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SearchProducts is the handler for GET /v1/products/search?q=
func (h *Handlers) SearchProducts(c *gin.Context) {
	products, err := h.Catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetBrands is the handler for GET /v1/brands?category=
func (h *Handlers) GetBrands(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required", "field": "category"})
		return
	}
	brands, err := h.Catalog.Brands(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

// GetCampaigns is the handler for GET /v1/campaigns
func (h *Handlers) GetCampaigns(c *gin.Context) {
	campaigns, err := h.Catalog.ActiveCampaigns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}
