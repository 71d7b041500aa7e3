package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/01moynul/pawshop-golang/internal/auth"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAndAdminMiddleware(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	r := gin.New()
	r.GET("/admin", AuthMiddleware(tokens), AdminMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	customer, _ := tokens.GenerateToken(7, models.RoleCustomer)
	req.Header.Set("Authorization", "Bearer "+customer)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	admin, _ := tokens.GenerateToken(1, models.RoleAdmin)
	req.Header.Set("Authorization", "Bearer "+admin)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestRateLimitReturns429WithoutRunningHandler(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore())
	policy := ratelimit.Policy{Name: "test", Max: 2, Window: time.Minute}
	calls := 0

	r := gin.New()
	r.POST("/contact", RateLimit(limiter, policy), func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		assert.Equal(t, http.StatusCreated, serve(r, req).Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	w := serve(r, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, 2, calls)

	other := httptest.NewRequest(http.MethodPost, "/contact", nil)
	other.Header.Set("X-Forwarded-For", "198.51.100.7")
	assert.Equal(t, http.StatusCreated, serve(r, other).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/v1/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/v1/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
