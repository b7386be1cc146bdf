package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/herbogene/storefront-api/config"
	"github.com/herbogene/storefront-api/controllers"
	"github.com/herbogene/storefront-api/middleware"
	"github.com/herbogene/storefront-api/models"
	"github.com/herbogene/storefront-api/services"
)

func main() {
	log.Println("Starting Herbogene storefront API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.AdminUser{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Payment gateway is required for the checkout flow
	if _, err := services.InitRazorpayService(); err != nil {
		log.Fatalf("Failed to initialize payment gateway: %v", err)
	}

	// Email falls back to a no-op sender when Resend is not configured
	services.InitEmailService()

	// Product images go to S3 when configured, local disk otherwise
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Printf("S3 not configured, using local image storage: %v", err)
		s3Service = nil
	}
	services.InitImageService(s3Service)

	router := setupRouter(cfg)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with CORS and all API routes
func setupRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.AppURL}
	if !cfg.IsProduction() {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, "http://localhost:3000")
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "x-razorpay-signature")
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	registerRoutes(router)
	return router
}

// registerRoutes wires every API endpoint onto the router
func registerRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Storefront
		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)
		v1.POST("/cart/validate", controllers.ValidateCart)
		v1.POST("/coupons/validate", controllers.ValidateCoupon)
		v1.POST("/orders", controllers.CreateOrder)
		v1.GET("/orders/track", controllers.TrackOrder)
		v1.GET("/orders/:id", controllers.GetOrder)

		// Payment
		v1.POST("/payment/create-order", controllers.CreatePaymentOrder)
		v1.POST("/payment/verify", controllers.VerifyPayment)
		v1.POST("/webhooks/razorpay", controllers.HandleRazorpayWebhook)

		// Locally stored product images
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		// Admin auth (login itself is unauthenticated)
		v1.POST("/admin/auth/login", controllers.AdminLogin)

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/auth/me", controllers.AdminMe)
			admin.POST("/auth/logout", controllers.AdminLogout)

			admin.GET("/orders", controllers.AdminListOrders)
			admin.GET("/orders/:id", controllers.AdminGetOrder)
			admin.PATCH("/orders/:id/status", controllers.AdminUpdateOrderStatus)

			admin.GET("/products", controllers.AdminListProducts)
			admin.POST("/products", controllers.AdminCreateProduct)
			admin.PATCH("/products/:id", controllers.AdminUpdateProduct)
			admin.PATCH("/products/:id/stock", controllers.AdminUpdateProductStock)
			admin.POST("/products/:id/image", controllers.AdminUploadProductImage)

			admin.GET("/coupons", controllers.AdminListCoupons)
			admin.POST("/coupons", controllers.AdminCreateCoupon)
			admin.GET("/coupons/:id", controllers.AdminGetCoupon)
			admin.PATCH("/coupons/:id", controllers.AdminUpdateCoupon)
			admin.DELETE("/coupons/:id", controllers.AdminDeleteCoupon)

			admin.GET("/dashboard/stats", controllers.DashboardStats)
		}
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Herbogene storefront API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	query := "SELECT tablename FROM pg_tables WHERE schemaname = 'public'"
	if strings.Contains(db.Dialector.Name(), "sqlite") {
		query = "SELECT name FROM sqlite_master WHERE type = 'table'"
	}
	if err := db.Raw(query).Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
