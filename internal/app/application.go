package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storefront-payments/internal/config"
	"storefront-payments/internal/handlers"
	"storefront-payments/internal/middleware"
	"storefront-payments/internal/models"
	"storefront-payments/internal/payments"
	"storefront-payments/internal/payments/astimpay"
	"storefront-payments/internal/repository"
	"storefront-payments/internal/service"
	"storefront-payments/pkg/cache"
	"storefront-payments/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db    *gorm.DB
	cache *cache.Cache

	provider payments.Provider

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	rateLimits *middleware.RateLimitManager
	router     *gin.Engine
	server     *http.Server
}

type repositoryContainer struct {
	Order   repository.OrderRepository
	Product repository.ProductRepository
	Token   repository.PaymentTokenRepository
}

type serviceContainer struct {
	Order     *service.OrderService
	Checkout  *service.CheckoutService
	Reconcile *service.ReconcileService
	Notices   *service.NoticeService
	Policy    *service.TransitionPolicy
}

type handlerContainer struct {
	Order    *handlers.OrderHandler
	Checkout *handlers.CheckoutHandler
	Return   *handlers.PaymentReturnHandler
	Webhook  *handlers.WebhookHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		return nil, err
	}

	if err := app.createIndexes(); err != nil {
		return nil, err
	}

	app.initCache()
	app.initProvider()
	app.initRepositories()
	app.initServices()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.rateLimits != nil {
		a.rateLimits.Shutdown()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderNote{},
		&models.PaymentToken{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) createIndexes() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_payment_tokens_order_unused ON payment_tokens(order_id) WHERE used = false",
	}

	for _, stmt := range statements {
		if err := a.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func (a *Application) initCache() {
	if a.cfg.EnableCache {
		a.cache = cache.NewCache(a.cfg.RedisURL, a.cfg.EnableRedis)
	} else {
		a.cache = cache.NewCache("", false)
	}
}

func (a *Application) initProvider() {
	provider, err := astimpay.NewProvider(
		a.cfg.GatewayAPIKey,
		a.cfg.GatewayBaseURL,
		time.Duration(a.cfg.GatewayClientTimeout)*time.Second,
	)
	if err != nil {
		// Checkout stays disabled until the gateway is configured; other
		// routes keep working.
		logger.Warn("Payment gateway not configured", map[string]interface{}{
			"reason": err.Error(),
		})
		return
	}
	a.provider = provider
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		Order:   repository.NewOrderRepository(a.db),
		Product: repository.NewProductRepository(a.db),
		Token:   repository.NewPaymentTokenRepository(a.db),
	}
}

func (a *Application) initServices() {
	notices := service.NewNoticeService(a.cache)
	policy := service.NewTransitionPolicy(a.repositories.Order, a.repositories.Product)

	a.services = serviceContainer{
		Notices: notices,
		Policy:  policy,
		Order:   service.NewOrderService(a.repositories.Order, a.repositories.Product, a.cache),
		Checkout: service.NewCheckoutService(a.repositories.Order, a.repositories.Token, a.provider, service.CheckoutConfig{
			PublicURL:          a.cfg.PublicURL,
			SiteURL:            a.cfg.SiteURL,
			CheckoutPath:       a.cfg.CheckoutPath,
			SettlementCurrency: a.cfg.SettlementCurrency,
			ExchangeRate:       a.cfg.ExchangeRate,
		}),
		Reconcile: service.NewReconcileService(a.repositories.Order, a.repositories.Token, a.provider, policy, notices),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Order:    handlers.NewOrderHandler(a.services.Order, a.services.Notices),
		Checkout: handlers.NewCheckoutHandler(a.services.Checkout),
		Return:   handlers.NewPaymentReturnHandler(a.services.Reconcile, a.cfg),
		Webhook:  handlers.NewWebhookHandler(a.services.Reconcile, a.cfg.GatewayAPIKey),
	}
}

func (a *Application) initRouter() {
	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.rateLimits = middleware.NewRateLimitManager()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitMiddleware(a.rateLimits, a.cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Processor-facing callbacks.
	router.GET("/payment/return", a.handlers.Return.Return)
	router.GET("/checkout", a.handlers.Return.Cancel)
	router.POST("/payment/ipn", a.handlers.Webhook.HandleIPN)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.GET("/orders/:id/notices", a.handlers.Order.GetNotices)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		{
			protected.POST("/orders", a.handlers.Order.Create)
			protected.GET("/orders/:id", a.handlers.Order.GetByID)
			protected.POST("/checkout", a.handlers.Checkout.CreateSession)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}
