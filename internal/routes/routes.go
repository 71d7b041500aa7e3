package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/pawshop-golang/internal/handlers"
	"github.com/01moynul/pawshop-golang/internal/middleware"
	"github.com/01moynul/pawshop-golang/internal/ratelimit"
)

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// --- APPLY THE CORS GUARD ---
	// This must be the very first thing after logging
	router.Use(middleware.CORS(h.CORSOrigins))

	router.Static("/uploads", h.UploadDir)

	limit := func(p ratelimit.Policy) gin.HandlerFunc { return middleware.RateLimit(h.Limiter, p) }

	v1 := router.Group("/v1")
	v1.Use(h.Sessions.Middleware())
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", limit(ratelimit.Register), h.Register)
		v1.POST("/login", limit(ratelimit.Login), h.Login)

		// --- Catalog Routes (Public) ---
		browse := v1.Group("/", limit(ratelimit.Browse))
		{
			browse.GET("/products", h.GetCatalog)
			browse.GET("/products/search", h.SearchProducts)
			browse.GET("/products/:id", h.GetProduct)
			browse.GET("/products/:id/reviews", h.GetReviews)
			browse.GET("/brands", h.GetBrands)
			browse.GET("/campaigns", h.GetCampaigns)
			browse.GET("/orders/:code", h.LookupOrder)
		}
		v1.POST("/category", h.SelectCategory)
		v1.POST("/theme", h.ToggleTheme)

		// --- Cart Routes (Session) ---
		v1.GET("/cart", h.GetCart)
		v1.POST("/cart/items", h.AddToCart)
		v1.PUT("/cart/items/:index", h.UpdateCartItem)
		v1.DELETE("/cart/items/:index", h.RemoveCartItem)
		v1.DELETE("/cart", h.ClearCart)
		v1.POST("/checkout", limit(ratelimit.Checkout), h.Checkout)

		// --- Contact & Newsletter (Public) ---
		v1.POST("/contact", limit(ratelimit.Contact), h.SubmitContact)
		v1.POST("/newsletter", limit(ratelimit.Newsletter), h.Subscribe)
		v1.POST("/newsletter/unsubscribe", limit(ratelimit.Newsletter), h.Unsubscribe)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Tokens))
		{
			auth.GET("/me", h.GetMe)

			auth.GET("/wishlist", h.GetWishlist)
			auth.POST("/wishlist/:id", h.AddToWishlist)
			auth.DELETE("/wishlist/:id", h.RemoveFromWishlist)

			auth.POST("/products/:id/reviews", limit(ratelimit.Review), h.CreateReview)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(h.Tokens))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/dashboard", h.GetDashboard)
			admin.GET("/pool", h.GetPoolStats)

			admin.GET("/products", h.GetAllProducts)
			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.POST("/products/:id/restock", h.RestockProduct)
			admin.POST("/upload", h.UploadImage)

			admin.GET("/stock/stats", h.GetStockStats)
			admin.GET("/stock/low", h.GetLowStock)

			admin.GET("/orders", h.ListOrders)
			admin.GET("/orders/code/:code", h.GetOrderByCode)
			admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
			admin.PATCH("/orders/:id/shipping", h.UpdateShippingField)

			admin.GET("/campaigns", h.GetAllCampaigns)
			admin.POST("/campaigns", h.CreateCampaign)
			admin.PUT("/campaigns/:id", h.UpdateCampaign)
			admin.DELETE("/campaigns/:id", h.DeleteCampaign)

			admin.GET("/messages", h.GetMessages)
			admin.PATCH("/messages/:id/read", h.MarkMessageRead)
			admin.DELETE("/messages/:id", h.DeleteMessage)
			admin.POST("/newsletter/send", h.SendNewsletter)

			admin.GET("/notifications", h.GetNotifications)
			admin.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)
		}
	}

	return router
}
