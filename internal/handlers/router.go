package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/inventory"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
)

// Pinger reports whether a backing store is reachable. Implementations bound
// their own wait.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the HTTP surface calls into.
type Deps struct {
	Products   *catalog.ProductService
	Categories *catalog.CategoryService
	Sizes      *catalog.ReferenceService
	Colors     *catalog.ReferenceService
	Stock      *inventory.Service
	Accounts   *auth.Service
	Sessions   *auth.Inspector
	Orders     *checkout.Service
	Metrics    *metrics.AppMetrics

	// Database is pinged by /health; nil when running on the memory store.
	Database    Pinger
	CORSOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/health", Health(d.Database))

	/* ---- AUTH ---- */

	r.POST("/auth/register", Register(d.Accounts))
	r.POST("/auth/login", Login(d.Accounts))
	r.POST("/auth/refresh", Refresh(d.Accounts))
	r.POST("/auth/logout", middleware.OptionalAuth(d.Sessions), Logout(d.Accounts))
	r.GET("/auth/me", middleware.UserAuth(d.Sessions), GetMe(d.Accounts))
	r.PATCH("/auth/me", middleware.UserAuth(d.Sessions), UpdateMe(d.Accounts))
	r.POST("/admin/login", AdminLogin(d.Accounts))

	/* ---- CATALOG ---- */

	r.GET("/products", GetProducts(d.Products))
	r.GET("/products/:id", GetProduct(d.Products))
	r.GET("/products/:id/colors", GetProductColors(d.Products))
	r.GET("/products/:id/sizes", GetProductSizes(d.Products))

	r.GET("/categories", GetCategories(d.Categories))
	r.GET("/categories/:id", GetCategory(d.Categories))

	r.GET("/sizes", GetReferences(d.Sizes))
	r.GET("/sizes/:id", GetReference(d.Sizes))
	r.GET("/colors", GetReferences(d.Colors))
	r.GET("/colors/:id", GetReference(d.Colors))

	/* ---- CHECKOUT ---- */

	r.POST("/checkout", middleware.OptionalAuth(d.Sessions), Checkout(d.Orders))

	/* ---- ADMIN ---- */

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(d.Sessions))
	{
		admin.GET("/me", GetMe(d.Accounts))

		admin.GET("/products", GetAllProducts(d.Products))
		admin.GET("/products/:id", GetAdminProduct(d.Products))
		admin.POST("/products", CreateProduct(d.Products))
		admin.POST("/products/bulk", CreateProductsBulk(d.Products))
		admin.PATCH("/products/:id", UpdateProduct(d.Products))
		admin.DELETE("/products/:id", DeleteProduct(d.Products))
		admin.POST("/products/:id/decrement", DecrementStock(d.Stock))

		admin.GET("/categories", GetAllCategories(d.Categories))
		admin.POST("/categories", CreateCategory(d.Categories))
		admin.POST("/categories/bulk", CreateCategoriesBulk(d.Categories))
		admin.PUT("/categories/:id", UpdateCategory(d.Categories))
		admin.DELETE("/categories/:id", DeleteCategory(d.Categories))

		admin.POST("/sizes", CreateReference(d.Sizes))
		admin.POST("/sizes/bulk", CreateReferencesBulk(d.Sizes))
		admin.POST("/colors", CreateReference(d.Colors))
		admin.POST("/colors/bulk", CreateReferencesBulk(d.Colors))

		admin.GET("/users", ListUsers(d.Accounts))
		admin.GET("/users/:id/role", GetUserRole(d.Accounts))

		admin.GET("/orders", GetOrders(d.Orders))
		admin.DELETE("/orders/:id", DeleteOrder(d.Orders))
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Health pings the database when there is one.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"

		if db != nil {
			if err := db.Ping(c.Request.Context()); err != nil {
				log.Printf("[%s] database ping failed: %v", route, err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
