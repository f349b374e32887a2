package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sabin-khadka/khaja-ghar-api/config"
	"github.com/sabin-khadka/khaja-ghar-api/controllers"
	"github.com/sabin-khadka/khaja-ghar-api/middleware"
	"github.com/sabin-khadka/khaja-ghar-api/models"
	"github.com/sabin-khadka/khaja-ghar-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting Khaja Ghar API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.RewardTransaction{},
		&models.Subscription{},
		&models.PreOrder{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize services
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)

	gateway := services.InitPaymentGateway(services.NewKhaltiService(cfg))
	rewards := services.InitRewardService()
	services.InitOrderService(gateway, rewards)

	// Initialize Gin router
	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter creates the router and registers all API routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	authRequired := middleware.EnsureValidToken(cfg)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Public product catalog
		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)

		// Users
		v1.POST("/users", authRequired, controllers.CreateUser)
		v1.GET("/users", authRequired, controllers.ListUsers)
		v1.GET("/users/me", authRequired, controllers.GetCurrentUser)
		v1.PUT("/users/me", authRequired, controllers.UpdateCurrentUser)

		// Product administration
		v1.POST("/products", authRequired, controllers.CreateProduct)
		v1.PUT("/products/:id", authRequired, controllers.UpdateProduct)
		v1.DELETE("/products/:id", authRequired, controllers.DeleteProduct)
		v1.POST("/products/:id/image", authRequired, controllers.UploadProductImage)

		// Orders
		v1.POST("/orders/create", authRequired, controllers.CreateOrder)
		v1.GET("/orders", authRequired, controllers.GetOrders)
		v1.GET("/orders/:id", authRequired, controllers.GetOrder)
		v1.PUT("/orders/:id/confirm", authRequired, controllers.ConfirmOrder)
		v1.PUT("/orders/:id/cancel", authRequired, controllers.CancelOrder)
		v1.DELETE("/orders/:id", authRequired, controllers.RemoveOrder)

		// Khalti payment flow
		v1.POST("/payment/khalti/initiate", authRequired, controllers.InitiateKhaltiPayment)
		v1.POST("/payment/khalti/verify", authRequired, controllers.VerifyKhaltiPayment)
		v1.POST("/payment/khalti/refund", authRequired, controllers.RefundKhaltiPayment)

		// Rewards
		v1.GET("/rewards/balance", authRequired, controllers.GetRewardBalance)
		v1.GET("/rewards/history", authRequired, controllers.GetRewardHistory)

		// Subscriptions
		v1.POST("/subscriptions", authRequired, controllers.CreateSubscription)
		v1.GET("/subscriptions", authRequired, controllers.ListSubscriptions)
		v1.PUT("/subscriptions/:id/cancel", authRequired, controllers.CancelSubscription)

		// Pre-orders
		v1.POST("/preorders", authRequired, controllers.CreatePreOrder)
		v1.GET("/preorders", authRequired, controllers.ListPreOrders)
		v1.PUT("/preorders/:id/cancel", authRequired, controllers.CancelPreOrder)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Khaja Ghar API is running",
	})
}
