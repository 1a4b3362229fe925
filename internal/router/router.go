// internal/router/router.go
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/catalog"
	"github.com/infonomu/bni/internal/config"
	"github.com/infonomu/bni/internal/database"
	"github.com/infonomu/bni/internal/handlers"
	"github.com/infonomu/bni/internal/mailer"
	"github.com/infonomu/bni/internal/middleware"
	"github.com/infonomu/bni/internal/query"
	"github.com/infonomu/bni/internal/services"
	"github.com/infonomu/bni/internal/session"
	"github.com/infonomu/bni/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	redisClient := database.NewRedisClient(cfg.Redis)

	// Initialize services
	authService := services.NewAuthService(db, redisClient, cfg)

	// The server holds its own session under the privileged service
	// identity; reads that fail with an auth-classified error refresh
	// through it and retry.
	sessionManager := session.NewManager(authService, authService)
	if err := sessionManager.Initialize(context.Background()); err != nil {
		logrus.WithError(err).Warn("service session unavailable; auth-failed queries surface without retry")
	}
	executor := query.NewExecutor(sessionManager)

	productService := services.NewProductService(db, executor)
	settingsService := services.NewSettingsService(db)
	storageService, _ := services.NewStorageService(cfg)

	catalogStore := catalog.NewStore(db, executor)

	resendClient := mailer.NewResendClient(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)
	dispatcher := mailer.NewDispatcher(mailer.NewGormOrderLoader(db), resendClient)

	orderService := services.NewOrderService(db, executor, dispatcher)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService, authService, storageService, catalogStore)
	orderHandler := handlers.NewOrderHandler(orderService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	functionHandler := handlers.NewFunctionHandler(dispatcher, cfg.Email.ResendAPIKey != "")

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
			auth.PUT("/profile", middleware.AuthRequired(), authHandler.UpdateProfile)
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", productHandler.ListProducts)
			products.GET("/mine", middleware.AuthRequired(), productHandler.GetMyProducts)
			products.GET("/:id", productHandler.GetProduct)

			// Authenticated routes
			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", productHandler.CreateProduct)
				protected.PUT("/:id", productHandler.UpdateProduct)
				protected.DELETE("/:id", productHandler.DeleteProduct)
				protected.POST("/upload-images", middleware.UploadRateLimit(), productHandler.UploadImages)
			}
		}

		// Order routes
		orders := v1.Group("/orders")
		{
			orders.POST("", middleware.OrderRateLimit(), middleware.OptionalAuth(), orderHandler.CreateOrder)
			orders.GET("/mine", middleware.AuthRequired(), orderHandler.GetMyOrders)
			orders.GET("/received", middleware.AuthRequired(), orderHandler.GetReceivedOrders)
		}

		// Public metadata
		v1.GET("/categories", settingsHandler.GetCategories)
		v1.GET("/settings", settingsHandler.GetSettings)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.PUT("/settings", settingsHandler.UpdateSettings)
		}
	}

	// Standalone dispatch function, kept on its own path with its own
	// CORS handling.
	r.POST("/functions/send-order-email",
		middleware.ServiceKeyRequired(cfg.Function.ServiceKey), functionHandler.SendOrderEmail)
	r.OPTIONS("/functions/send-order-email", functionHandler.Preflight)

	return r
}
