package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	identityapp "github.com/oracare/fulfillment/internal/application/identity"
	incidentapp "github.com/oracare/fulfillment/internal/application/incident"
	inventoryapp "github.com/oracare/fulfillment/internal/application/inventory"
	orderapp "github.com/oracare/fulfillment/internal/application/order"
	reportapp "github.com/oracare/fulfillment/internal/application/report"
	syncapp "github.com/oracare/fulfillment/internal/application/sync"
	"github.com/oracare/fulfillment/internal/domain/syncstate"
	"github.com/oracare/fulfillment/internal/infrastructure/auth"
	"github.com/oracare/fulfillment/internal/infrastructure/cache"
	"github.com/oracare/fulfillment/internal/infrastructure/config"
	"github.com/oracare/fulfillment/internal/infrastructure/logger"
	"github.com/oracare/fulfillment/internal/infrastructure/persistence"
	"github.com/oracare/fulfillment/internal/infrastructure/scheduler"
	"github.com/oracare/fulfillment/internal/infrastructure/shipstation"
	"github.com/oracare/fulfillment/internal/infrastructure/storage"
	"github.com/oracare/fulfillment/internal/infrastructure/xmlfeed"
	"github.com/oracare/fulfillment/internal/interfaces/http/handler"
	"github.com/oracare/fulfillment/internal/interfaces/http/middleware"
	"github.com/oracare/fulfillment/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Oracare fulfillment dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis backs sessions and the workflow control cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		_ = redisClient.Close()
	}()

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	originRepo := persistence.NewGormOrderOriginRepository(db.DB)
	shippedRepo := persistence.NewGormShippedRepository(db.DB)
	watermarkRepo := persistence.NewGormWatermarkRepository(db.DB)
	controlRepo := persistence.NewGormWorkflowControlRepository(db.DB)
	duplicateRepo := persistence.NewGormDuplicateAlertRepository(db.DB)
	mismatchRepo := persistence.NewGormLotMismatchAlertRepository(db.DB)
	conflictRepo := persistence.NewGormConflictRepository(db.DB)
	ledgerRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	currentRepo := persistence.NewGormInventoryCurrentRepository(db.DB)
	lotRepo := persistence.NewGormLotInventoryRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)
	incidentRepo := persistence.NewGormIncidentRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	syncScope := persistence.NewGormSyncScope(db.DB)

	// Workflow controls read through Redis with the database as source of
	// truth, so the per-cycle enabled check stays cheap.
	controls := cache.NewRedisWorkflowControlCache(controlRepo, redisClient, cfg.Sync.ControlCacheTTL, log)

	// Shipping platform client
	platform := shipstation.NewClient(cfg.ShipStation, log)

	// Screenshot object store
	var screenshotStore incidentapp.ObjectStore
	switch cfg.Storage.Driver {
	case "s3":
		screenshotStore, err = storage.NewS3Store(&cfg.Storage, log)
	default:
		screenshotStore, err = storage.NewLocalStore(cfg.Storage.LocalBasePath)
	}
	if err != nil {
		log.Fatal("Failed to initialize screenshot store", zap.Error(err))
	}
	log.Info("Screenshot store ready", zap.String("driver", cfg.Storage.Driver))

	// Application services
	orderUpload := syncapp.NewOrderUploadService(platform, orderRepo, originRepo, 0, log)
	unifiedSync := syncapp.NewUnifiedSyncService(syncScope, platform, orderRepo, originRepo, watermarkRepo, settingsRepo, cfg.Sync, log)
	duplicateScan := syncapp.NewDuplicateScanService(platform, duplicateRepo, conflictRepo, cfg.Sync.CollisionWindowDays, log)
	mismatchScan := syncapp.NewLotMismatchScanService(platform, lotRepo, mismatchRepo, cfg.Sync.CollisionWindowDays, log)
	ghostBackfill := syncapp.NewGhostBackfillService(platform, orderRepo, 0, log)
	cleanup := syncapp.NewCleanupService(orderRepo, cfg.Sync.InboxRetention, log)
	orderService := orderapp.NewOrderService(orderRepo, xmlfeed.NewParser(cfg.ShipStation.MaxBodyBytes), log)
	inventoryService := inventoryapp.NewInventoryService(syncScope, ledgerRepo, currentRepo, lotRepo, log)
	incidentService := incidentapp.NewIncidentService(incidentRepo, screenshotStore, log)
	reportService := reportapp.NewReportService(shippedRepo, currentRepo, lotRepo, settingsRepo, log)
	authService := identityapp.NewAuthService(userRepo, auth.NewRedisSessionStore(redisClient), cfg.Session.TTL, log)

	// First-run admin bootstrap
	if user, pass := os.Getenv("ORACARE_ADMIN_USERNAME"), os.Getenv("ORACARE_ADMIN_PASSWORD"); user != "" && pass != "" {
		if err := authService.EnsureAdmin(context.Background(), user, pass); err != nil {
			log.Fatal("Failed to ensure admin user", zap.Error(err))
		}
	}

	// Background workers
	manager := scheduler.NewManager(log)
	if cfg.Sync.WorkersEnabled {
		manager.Register(scheduler.NewIntervalWorker(syncstate.WorkflowUnifiedSync, cfg.Sync.UnifiedInterval, cfg.Sync.RunOnStart,
			func(ctx context.Context) error {
				// push local changes out before pulling remote ones in
				if _, err := orderUpload.Run(ctx); err != nil {
					return err
				}
				_, err := unifiedSync.Run(ctx)
				return err
			}, controls.IsEnabled, log))
		manager.Register(scheduler.NewIntervalWorker(syncstate.WorkflowDuplicateScan, cfg.Sync.ScannerInterval, cfg.Sync.RunOnStart,
			func(ctx context.Context) error {
				_, err := duplicateScan.Run(ctx)
				return err
			}, controls.IsEnabled, log))
		manager.Register(scheduler.NewIntervalWorker(syncstate.WorkflowLotMismatchScan, cfg.Sync.ScannerInterval, cfg.Sync.RunOnStart,
			func(ctx context.Context) error {
				_, err := mismatchScan.Run(ctx)
				return err
			}, controls.IsEnabled, log))
		manager.Register(scheduler.NewIntervalWorker(syncstate.WorkflowGhostBackfill, cfg.Sync.ScannerInterval, cfg.Sync.RunOnStart,
			func(ctx context.Context) error {
				_, err := ghostBackfill.Run(ctx)
				return err
			}, controls.IsEnabled, log))
		manager.Register(scheduler.NewIntervalWorker(syncstate.WorkflowCleanup, cfg.Sync.CleanupInterval, false,
			func(ctx context.Context) error {
				_, err := cleanup.Run(ctx)
				return err
			}, controls.IsEnabled, log))

		workerCtx, stopWorkers := context.WithCancel(context.Background())
		manager.Start(workerCtx)
		defer func() {
			stopWorkers()
			manager.Stop()
		}()
	} else {
		log.Warn("Background workers disabled by configuration")
	}

	// HTTP handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.Secure)
	orderHandler := handler.NewOrderHandler(orderService)
	shippedHandler := handler.NewShippedHandler(shippedRepo)
	alertHandler := handler.NewAlertHandler(duplicateRepo, mismatchRepo, conflictRepo)
	syncHandler := handler.NewSyncHandler(orderUpload, unifiedSync, duplicateScan, mismatchScan, ghostBackfill, cleanup, watermarkRepo, controls)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	settingsHandler := handler.NewSettingsHandler(settingsRepo)
	incidentHandler := handler.NewIncidentHandler(incidentService)
	reportHandler := handler.NewReportHandler(reportService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Env)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint, outside API versioning and auth
	engine.GET("/health", healthHandler(db))

	// Dashboard pages
	handler.NewStaticHandler("./web").Mount(engine)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.SessionAuth(middleware.SessionConfig{
		Resolver:   authService,
		CookieName: cfg.Session.CookieName,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		ViewerWritePaths: []string{
			"/api/v1/auth/logout",
		},
		ViewerWritePrefixes: []string{
			"/api/v1/incidents",
		},
		Logger: log,
	}))

	r.Register(authHandler.Routes()).
		Register(orderHandler.Routes()).
		Register(shippedHandler.Routes()).
		Register(alertHandler.Routes()).
		Register(syncHandler.Routes()).
		Register(inventoryHandler.Routes()).
		Register(settingsHandler.Routes()).
		Register(incidentHandler.Routes()).
		Register(reportHandler.Routes()).
		Register(systemHandler.Routes())
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness and database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
