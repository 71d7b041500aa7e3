package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

//
// --- Admin Notification Inbox ---
//

// NotificationView is the JSON shape of one inbox entry.
type NotificationView struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetNotifications is the handler for GET /v1/admin/notifications
// Newest first, at most 50 unless ?limit= asks for fewer or more (max 200).
func (h *Handlers) GetNotifications(c *gin.Context) {
	// 1. --- Read Limit ---
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200", "field": "limit"})
			return
		}
		limit = n
	}

	// 2. --- Query Store ---
	list, err := h.Store.ListNotifications(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Build Response ---
	notifications := make([]NotificationView, 0, len(list))
	for _, n := range list {
		notifications = append(notifications, NotificationView{
			ID:        n.ID,
			Kind:      n.Kind,
			Message:   n.Message,
			Link:      n.Link.String,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /v1/admin/notifications/:id/read
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.MarkNotificationRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
