package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/01moynul/pawshop-golang/internal/database"
	"github.com/01moynul/pawshop-golang/internal/models"
)

//
// --- Admin Dashboard Stats ---
//

type DashboardStats struct {
	Stock          models.StockStats          `json:"stock"`
	LowStock       []models.Product           `json:"lowStock"`
	Orders         map[models.OrderStatus]int `json:"orders"`
	UnreadMessages int                        `json:"unreadMessages"`
	Subscribers    int                        `json:"subscribers"`
	Pool           database.PoolStats         `json:"pool"`
}

// GetDashboard returns KPI data for the admin dashboard
// GET /v1/admin/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	stats := DashboardStats{Pool: h.Store.Pool().Stats()}
	g, ctx := errgroup.WithContext(c.Request.Context())

	// 1. Stock figures (cached)
	g.Go(func() (err error) {
		stats.Stock, err = h.Catalog.StockStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.LowStock, err = h.Catalog.LowStock(ctx)
		return err
	})

	// 2. Orders per status
	g.Go(func() (err error) {
		stats.Orders, err = h.Store.CountOrdersByStatus(ctx)
		return err
	})

	// 3. Inbox and audience
	g.Go(func() error {
		unread, err := h.Store.ListMessages(ctx, true)
		stats.UnreadMessages = len(unread)
		return err
	})
	g.Go(func() error {
		emails, err := h.Store.ActiveSubscribers(ctx)
		stats.Subscribers = len(emails)
		return err
	})

	if err := g.Wait(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetStockStats is the handler for GET /v1/admin/stock/stats
func (h *Handlers) GetStockStats(c *gin.Context) {
	stats, err := h.Catalog.StockStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetLowStock is the handler for GET /v1/admin/stock/low?threshold=N
// Without a threshold each product is compared against its own.
func (h *Handlers) GetLowStock(c *gin.Context) {
	threshold := -1
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a non-negative integer", "field": "threshold"})
			return
		}
		threshold = n
	}

	count, err := h.Store.CountLowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	products, err := h.Catalog.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "products": products})
}

// GetPoolStats is the handler for GET /v1/admin/pool
func (h *Handlers) GetPoolStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Pool().Stats())
}
