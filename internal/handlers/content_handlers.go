package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/pawshop-golang/internal/models"
)

//
// --- Contact Form ---
//

type ContactInput struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"max=200"`
	Body    string `json:"message" binding:"required,max=5000"`
}

// SubmitContact is the handler for POST /v1/contact
func (h *Handlers) SubmitContact(c *gin.Context) {
	var input ContactInput
	if !bindJSON(c, &input) {
		return
	}

	msg := &models.Message{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Subject: strings.TrimSpace(input.Subject),
		Body:    strings.TrimSpace(input.Body),
	}
	if err := h.Store.CreateMessage(c.Request.Context(), msg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thanks, we will get back to you soon"})
}

//
// --- Newsletter ---
//

type NewsletterInput struct {
	Email string `json:"email" binding:"required,email"`
}

// Subscribe is the handler for POST /v1/newsletter
func (h *Handlers) Subscribe(c *gin.Context) {
	var input NewsletterInput
	if !bindJSON(c, &input) {
		return
	}
	if err := h.Store.Subscribe(c.Request.Context(), input.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscribed"})
}

// Unsubscribe is the handler for POST /v1/newsletter/unsubscribe
func (h *Handlers) Unsubscribe(c *gin.Context) {
	var input NewsletterInput
	if !bindJSON(c, &input) {
		return
	}
	ok, err := h.Store.Unsubscribe(c.Request.Context(), input.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active subscription for this email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

type SendNewsletterInput struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Body    string `json:"body" binding:"required"`
}

// SendNewsletter is the handler for POST /v1/admin/newsletter/send
// Delivery runs in the background; the response reports the audience size.
func (h *Handlers) SendNewsletter(c *gin.Context) {
	var input SendNewsletterInput
	if !bindJSON(c, &input) {
		return
	}

	emails, err := h.Store.ActiveSubscribers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if len(emails) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No active subscribers", "recipients": 0})
		return
	}

	h.Notifier.SendNewsletter(input.Subject, input.Body, emails)
	c.JSON(http.StatusAccepted, gin.H{"message": "Newsletter queued", "recipients": len(emails)})
}

//
// --- Admin Messages ---
//

// GetMessages is the handler for GET /v1/admin/messages?unread=true
func (h *Handlers) GetMessages(c *gin.Context) {
	messages, err := h.Store.ListMessages(c.Request.Context(), c.Query("unread") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MarkMessageRead is the handler for PATCH /v1/admin/messages/:id/read
func (h *Handlers) MarkMessageRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.MarkMessageRead(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}

// DeleteMessage is the handler for DELETE /v1/admin/messages/:id
func (h *Handlers) DeleteMessage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteMessage(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}
