package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	deliveryapp "github.com/marketplace/backend/internal/application/delivery"
	inventoryapp "github.com/marketplace/backend/internal/application/inventory"
	orderapp "github.com/marketplace/backend/internal/application/order"
	settlementapp "github.com/marketplace/backend/internal/application/settlement"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/cache"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"github.com/marketplace/backend/internal/infrastructure/geo"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/notification"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/internal/infrastructure/scheduler"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/marketplace/backend/internal/interfaces/http/router"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting marketplace backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing before the database so the GORM plugin can
	// attach to a live provider
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Attach query tracing to GORM
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:            tracerProvider.IsEnabled(),
		SlowQueryThreshold: 200 * time.Millisecond,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories and the transaction scope
	repos := persistence.NewRepositories(db.DB)
	scope := persistence.NewGormScope(db.DB)

	// Platform settings, catalog lookups and seller coordinates all
	// read through the marketplace reference tables
	settingsProvider := persistence.NewGormSettingsProvider(db.DB)
	catalog := persistence.NewGormProductCatalog(db.DB)
	commissionPlans := persistence.NewGormCommissionPlanChecker(db.DB)
	sellerLocator := persistence.NewSellerLocator(db.DB)
	agentFinder := persistence.NewGormAgentFinder(db.DB)
	distance := geo.NewHaversineCalculator(sellerLocator, settingsProvider)

	// QR token cache: Redis when configured, in-process otherwise. The
	// database token index stays authoritative either way.
	var tokenStore deliveryapp.TokenStore
	var tokenStoreClose func() error
	if cfg.Redis.Host != "" {
		redisStore, err := cache.NewRedisTokenStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		tokenStore = redisStore
		tokenStoreClose = redisStore.Close
		log.Info("Redis token store connected",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		memStore := cache.NewInMemoryTokenStore()
		tokenStore = memStore
		tokenStoreClose = memStore.Close
		log.Info("Using in-memory token store")
	}
	defer func() {
		if err := tokenStoreClose(); err != nil {
			log.Error("Error closing token store", zap.Error(err))
		}
	}()

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbound notifications go to structured logs until an SMS or
	// push gateway is wired in
	notifier := notification.NewLogNotifier(log)

	// Initialize application services
	earningFactory := settlementapp.NewEarningFactory(settingsProvider, commissionPlans)
	stockService := inventoryapp.NewStockService(scope, repos.Inventory, repos.Movements, eventBus, log)
	orderService := orderapp.NewOrderService(scope, repos.Orders, catalog, distance, agentFinder, tokenStore, settingsProvider, notifier, eventBus, log)
	verificationService := deliveryapp.NewVerificationService(scope, repos.Deliveries, tokenStore, earningFactory, settingsProvider, notifier, eventBus, log)
	settlementService := settlementapp.NewSettlementService(scope, repos.Earnings, repos.Payouts, settingsProvider, notifier, eventBus, log)

	// Background sweeps: expire unpaid reservations, mature earnings
	expirationService := orderapp.NewExpirationService(scope, repos.Orders, settingsProvider, eventBus, log)
	maturationService := settlementapp.NewMaturationService(scope, repos.Earnings, eventBus, log)
	sweeper := scheduler.NewSweeper(expirationService, maturationService, log, scheduler.SweepConfig{
		Enabled:            cfg.Sweep.Enabled,
		ExpirationInterval: cfg.Sweep.ExpirationInterval,
		MaturationInterval: cfg.Sweep.MaturationInterval,
		JobTimeout:         cfg.Sweep.JobTimeout,
	})
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start sweeper", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sweeper.Stop(stopCtx); err != nil {
			log.Error("Error stopping sweeper", zap.Error(err))
		}
	}()

	// JWT verification for the API surface
	jwtService := auth.NewJWTService(cfg.JWT)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Middleware stack, in order: request id, access log, panic
	// recovery, security headers, CORS, tracing, then authentication
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.JWTAuthWithConfig(middleware.DefaultJWTConfig(jwtService)))

	// Health and readiness live at the engine root, outside the API
	// version prefix
	systemHandler := handler.NewSystemHandler(db, version)
	systemHandler.RegisterRoutes(engine)

	// Mount the domain route groups under /api/v1
	router.New(engine).
		Register(handler.NewStockHandler(stockService)).
		Register(handler.NewOrderHandler(orderService)).
		Register(handler.NewDeliveryHandler(verificationService)).
		Register(handler.NewSettlementHandler(settlementService)).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
