package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/pawshop-golang/internal/accounts"
	"github.com/01moynul/pawshop-golang/internal/middleware"
)

// --- User Registration ---

// Register is the handler for POST /v1/register
// New accounts are customers; admins come from the create-admin command.
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input accounts.RegisterInput
	if !bindJSON(c, &input) {
		return
	}

	// 2. --- Create Account ---
	session, err := h.Accounts.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, session)
}

// --- User Login ---

// Login is the handler for POST /v1/login
func (h *Handlers) Login(c *gin.Context) {
	var input accounts.LoginInput
	if !bindJSON(c, &input) {
		return
	}

	session, err := h.Accounts.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetMe is the handler for GET /v1/me
func (h *Handlers) GetMe(c *gin.Context) {
	user, err := h.Store.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
