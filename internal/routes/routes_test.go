package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/pawshop-golang/internal/accounts"
	"github.com/01moynul/pawshop-golang/internal/auth"
	"github.com/01moynul/pawshop-golang/internal/cache"
	"github.com/01moynul/pawshop-golang/internal/catalog"
	"github.com/01moynul/pawshop-golang/internal/database/dbtest"
	"github.com/01moynul/pawshop-golang/internal/handlers"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/ordering"
	"github.com/01moynul/pawshop-golang/internal/ratelimit"
	"github.com/01moynul/pawshop-golang/internal/routes"
	"github.com/01moynul/pawshop-golang/internal/session"
	"github.com/01moynul/pawshop-golang/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOrderCreated(*models.Order)                      {}
func (nopNotifier) NotifyStatusChanged(*models.Order, models.OrderStatus) {}
func (nopNotifier) NotifyLowStock(string, int, int)                       {}
func (nopNotifier) SendNewsletter(string, string, []string)               {}

// client replays the cookies the server sets, like a browser would.
type client struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
	token   string
}

type app struct {
	router   *gin.Engine
	accounts *accounts.Service
}

func setup(t *testing.T) *app {
	pool := dbtest.NewPool(t, 4)
	st := store.New(pool)
	c := cache.New(time.Minute)
	n := nopNotifier{}
	tokens := auth.NewTokens("test-secret", time.Hour)
	sessions := session.NewManager("test-secret", "pawshop_session", time.Hour, false)

	h := &handlers.Handlers{
		Store:       st,
		Catalog:     catalog.NewService(st, c, n, catalog.TTLs{Catalog: time.Minute, Stock: time.Minute, Campaigns: time.Minute}),
		Orders:      ordering.NewService(st, sessions, c, n, ordering.Options{PaymentChatURL: "https://wa.me/905551112233", Currency: "TL"}),
		Accounts:    accounts.NewService(st, tokens),
		Sessions:    sessions,
		Notifier:    n,
		Tokens:      tokens,
		Limiter:     ratelimit.New(ratelimit.NewMemoryStore()),
		CORSOrigins: []string{"http://localhost:5173"},
		UploadDir:   t.TempDir(),
		BaseURL:     "http://localhost:8080",
	}
	return &app{router: routes.SetupRouter(h), accounts: h.Accounts}
}

func (a *app) client(t *testing.T) *client {
	return &client{t: t, router: a.router, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *app) adminClient(t *testing.T) *client {
	_, err := a.accounts.CreateAdmin(context.Background(), "admin@pawshop.local", "admin-password", "Admin")
	require.NoError(t, err)

	c := a.client(t)
	code, body := c.do(http.MethodPost, "/v1/login", gin.H{"email": "admin@pawshop.local", "password": "admin-password"})
	require.Equal(t, http.StatusOK, code, body)
	c.token = body["token"].(string)
	return c
}

func (c *client) createProduct(name string, price string, stock int) int64 {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/v1/admin/products", gin.H{
		"name": name, "price": price, "category": "dog", "brand": "Acme", "stock": stock,
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	return int64(body["id"].(float64))
}

func TestCheckoutFlow(t *testing.T) {
	a := setup(t)
	admin := a.adminClient(t)
	bed := admin.createProduct("Bed", "100", 10)
	toy := admin.createProduct("Toy", "50", 5)

	shopper := a.client(t)
	code, body := shopper.do(http.MethodPost, "/v1/cart/items", gin.H{"product_id": bed, "quantity": 2})
	require.Equal(t, http.StatusOK, code, body)
	code, body = shopper.do(http.MethodPost, "/v1/cart/items", gin.H{"product_id": toy})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "250", body["total"])
	assert.Equal(t, float64(3), body["count"])

	code, body = shopper.do(http.MethodPost, "/v1/checkout", gin.H{
		"customerName": "Ada", "phone": "+905551112233", "address": "Moda Cd. 1, Istanbul",
	})
	require.Equal(t, http.StatusCreated, code, body)
	order := body["order"].(map[string]interface{})
	orderCode := order["orderCode"].(string)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{4}(-[A-Z0-9]{4}){3}$`), orderCode)
	assert.Equal(t, "250", order["totalPrice"])
	assert.Equal(t, "preparing", order["status"])
	assert.True(t, strings.HasPrefix(body["paymentUrl"].(string), "https://wa.me/905551112233?text="))

	// The cart is empty after checkout.
	code, body = shopper.do(http.MethodGet, "/v1/cart", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"])

	// Stock was reserved.
	code, body = shopper.do(http.MethodGet, fmt.Sprintf("/v1/products/%d", bed), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(8), body["stock"])

	// Anyone with the code can look the order up, in any case.
	code, body = a.client(t).do(http.MethodGet, "/v1/orders/"+strings.ToLower(orderCode), nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, orderCode, body["orderCode"])

	// The admin ships it.
	id := int64(order["id"].(float64))
	code, body = admin.do(http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", id), gin.H{
		"status": "shipped", "shippingCompany": "Yurtici", "trackingNumber": "TRK1",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "shipped", body["status"])
	assert.Equal(t, "TRK1", body["trackingNumber"])

	code, body = admin.do(http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", id), gin.H{"status": "preparing"})
	assert.Equal(t, http.StatusConflict, code, body)
	code, body = admin.do(http.MethodPatch, fmt.Sprintf("/v1/admin/orders/%d/status", id), gin.H{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "status", body["field"])
}

func TestCheckoutShortfallIsItemized(t *testing.T) {
	a := setup(t)
	admin := a.adminClient(t)
	food := admin.createProduct("Food", "30", 1)

	shopper := a.client(t)
	code, _ := shopper.do(http.MethodPost, "/v1/cart/items", gin.H{"product_id": food})
	require.Equal(t, http.StatusOK, code)
	code, _ = shopper.do(http.MethodPut, "/v1/cart/items/0", gin.H{"quantity": 3})
	require.Equal(t, http.StatusOK, code)

	code, body := shopper.do(http.MethodPost, "/v1/checkout", gin.H{"customerName": "Ada", "address": "Moda"})
	require.Equal(t, http.StatusConflict, code, body)
	shortfall := body["shortfall"].([]interface{})
	require.Len(t, shortfall, 1)
	line := shortfall[0].(map[string]interface{})
	assert.Equal(t, float64(food), line["productId"])
	assert.Equal(t, float64(3), line["requested"])
	assert.Equal(t, float64(1), line["available"])

	// Nothing changed: the cart is intact and stock untouched.
	_, body = shopper.do(http.MethodGet, "/v1/cart", nil)
	assert.Len(t, body["items"], 1)
	_, body = shopper.do(http.MethodGet, fmt.Sprintf("/v1/products/%d", food), nil)
	assert.Equal(t, float64(1), body["stock"])
}

func TestEmptyCartCheckoutIsRejected(t *testing.T) {
	a := setup(t)
	code, body := a.client(t).do(http.MethodPost, "/v1/checkout", gin.H{"customerName": "Ada", "address": "Moda"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "cart", body["field"])
}

func TestCatalogUsesSessionCategory(t *testing.T) {
	a := setup(t)
	admin := a.adminClient(t)
	admin.createProduct("Kibble", "20", 4)

	shopper := a.client(t)
	code, body := shopper.do(http.MethodGet, "/v1/products", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "category", body["field"])

	code, _ = shopper.do(http.MethodPost, "/v1/category", gin.H{"category": "dog"})
	require.Equal(t, http.StatusOK, code)

	code, body = shopper.do(http.MethodGet, "/v1/products?sort=price_desc", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "dog", body["category"])
	assert.Len(t, body["products"], 1)
	assert.Equal(t, []interface{}{"Acme"}, body["brands"])
}

func TestContactIsRateLimited(t *testing.T) {
	a := setup(t)
	c := a.client(t)
	msg := gin.H{"name": "Ada", "email": "ada@example.com", "message": "Do you ship to Izmir?"}

	for i := 0; i < ratelimit.Contact.Max; i++ {
		code, body := c.do(http.MethodPost, "/v1/contact", msg)
		require.Equal(t, http.StatusCreated, code, body)
	}
	code, body := c.do(http.MethodPost, "/v1/contact", msg)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.NotEmpty(t, body["error"])
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	a := setup(t)

	anon := a.client(t)
	code, _ := anon.do(http.MethodGet, "/v1/admin/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	customer := a.client(t)
	code, body := customer.do(http.MethodPost, "/v1/register", gin.H{
		"fullName": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, code, body)
	customer.token = body["token"].(string)
	code, _ = customer.do(http.MethodGet, "/v1/admin/dashboard", nil)
	assert.Equal(t, http.StatusForbidden, code)

	admin := a.adminClient(t)
	code, body = admin.do(http.MethodGet, "/v1/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, "stock")
	assert.Contains(t, body, "pool")
}
