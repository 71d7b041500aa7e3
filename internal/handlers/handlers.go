package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/accounts"
	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/auth"
	"github.com/01moynul/pawshop-golang/internal/catalog"
	"github.com/01moynul/pawshop-golang/internal/notify"
	"github.com/01moynul/pawshop-golang/internal/ordering"
	"github.com/01moynul/pawshop-golang/internal/ratelimit"
	"github.com/01moynul/pawshop-golang/internal/session"
	"github.com/01moynul/pawshop-golang/internal/store"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Store    *store.Store
	Catalog  *catalog.Service
	Orders   *ordering.Service
	Accounts *accounts.Service
	Sessions *session.Manager
	Notifier notify.Notifier

	// Used by the router for the auth, rate limit and CORS middleware.
	Tokens      *auth.Tokens
	Limiter     *ratelimit.Limiter
	CORSOrigins []string

	UploadDir string
	BaseURL   string
}

// respondError writes the response shape for err's kind.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.Internal {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch e.Kind {
	case apperr.Validation:
		body := gin.H{"error": e.Message}
		if e.Field != "" {
			body["field"] = e.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case apperr.Conflict:
		body := gin.H{"error": e.Message}
		if len(e.Shortfall) > 0 {
			body["shortfall"] = e.Shortfall
		}
		c.JSON(http.StatusConflict, body)
	case apperr.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Message})
	case apperr.Transient:
		log.WithError(err).WithField("path", c.FullPath()).Warn("transient failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": e.Message, "retryable": true})
	}
}

// bindJSON binds the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// paramID parses the named path parameter as a positive id.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "field": name})
		return 0, false
	}
	return id, true
}

// currentSession returns the visitor session loaded by the session middleware.
func currentSession(c *gin.Context) (*session.Session, bool) {
	s, ok := session.Current(c.Request.Context())
	if !ok {
		log.WithField("path", c.FullPath()).Error("session middleware not installed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session unavailable"})
		return nil, false
	}
	return s, true
}
