package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shubhmrj/Sellium/internal/cache"
	"github.com/shubhmrj/Sellium/internal/events"
	"github.com/shubhmrj/Sellium/internal/handler"
	mid "github.com/shubhmrj/Sellium/internal/middleware"
	"github.com/shubhmrj/Sellium/internal/model"
	"github.com/shubhmrj/Sellium/internal/order"
	"github.com/shubhmrj/Sellium/pkg/config"
	"github.com/shubhmrj/Sellium/pkg/database"
	"github.com/shubhmrj/Sellium/pkg/jwtutil"
	"github.com/shubhmrj/Sellium/pkg/logger"
	"github.com/shubhmrj/Sellium/pkg/storage"
	"github.com/shubhmrj/Sellium/prometheus"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting marketplace service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Optional Redis for order idempotency
	var idempotency *cache.Client
	if appConfig.Redis.Enabled() {
		idempotency = cache.New(appConfig.Redis)
		if err := idempotency.Ping(context.Background()); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer idempotency.Close()
		log.Info("Redis connection established", zap.String("addr", appConfig.Redis.Addr))
	}

	// Optional Kafka publisher for order events
	var publisher order.EventPublisher
	if appConfig.Kafka.Enabled() {
		kafkaPublisher := events.NewPublisher(appConfig.Kafka.Brokers, appConfig.Kafka.OrderTopic, log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("Kafka publisher initialized",
			zap.Strings("brokers", appConfig.Kafka.Brokers),
			zap.String("topic", appConfig.Kafka.OrderTopic))
	}

	// Order workflow service backed by the shared database handle
	store := order.NewGormStore(database.GetDB())
	orderService := order.NewService(store, store, publisher)

	// Image uploader for product listings
	uploader := storage.New(appConfig.Storage)

	handler.Init(orderService, idempotency, uploader)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{appConfig.CORS.FrontendURL},
		AllowCredentials: true,
	}))
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/api/health", handler.Health)

	// Auth routes
	authAPI := e.Group("/api/auth")
	authAPI.POST("/register", handler.Register)
	authAPI.POST("/login", handler.Login)
	authAPI.GET("/me", handler.Me, mid.AuthMiddleware)
	authAPI.PUT("/profile", handler.UpdateProfile, mid.AuthMiddleware)

	// Product routes; catalog reads are public, mutations are gated
	productAPI := e.Group("/api/products")
	productAPI.GET("/all-products", handler.ListProducts)
	productAPI.POST("/post-product", handler.CreateProduct,
		mid.AuthMiddleware, mid.Authorize(model.RoleSupplier, model.RoleAdmin))
	productAPI.GET("/:id", handler.GetProduct)
	productAPI.PUT("/:id", handler.UpdateProduct, mid.AuthMiddleware)
	productAPI.DELETE("/:id", handler.DeleteProduct, mid.AuthMiddleware)
	productAPI.POST("/:id/reviews", handler.AddReview,
		mid.AuthMiddleware, mid.Authorize(model.RoleBuyer))

	// Order routes
	orderAPI := e.Group("/api/orders", mid.AuthMiddleware)
	orderAPI.POST("", handler.CreateOrder, mid.Authorize(model.RoleBuyer))
	orderAPI.GET("", handler.ListOrders)
	orderAPI.GET("/:id", handler.GetOrder)
	orderAPI.PUT("/:id/status", handler.UpdateOrderStatus)

	// Category routes
	categoryAPI := e.Group("/api/categories")
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.GET("/:id", handler.GetCategory)
	categoryAPI.POST("", handler.CreateCategory,
		mid.AuthMiddleware, mid.Authorize(model.RoleAdmin))

	// User routes
	userAPI := e.Group("/api/users")
	userAPI.GET("", handler.ListUsers, mid.AuthMiddleware, mid.Authorize(model.RoleAdmin))
	userAPI.GET("/suppliers", handler.ListSuppliers)

	// Supplier routes
	supplierAPI := e.Group("/api/suppliers")
	supplierAPI.GET("", handler.ListSuppliers)
	supplierAPI.GET("/dashboard", handler.SupplierDashboard,
		mid.AuthMiddleware, mid.Authorize(model.RoleSupplier))
	supplierAPI.GET("/:id/products", handler.SupplierProducts)

	// Unmatched routes
	echo.NotFoundHandler = func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Route not found"})
	}

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
