package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/vendora/backend/internal/application/billing"
	commerceapp "github.com/vendora/backend/internal/application/commerce"
	"github.com/vendora/backend/internal/infrastructure/auth"
	"github.com/vendora/backend/internal/infrastructure/config"
	"github.com/vendora/backend/internal/infrastructure/logger"
	"github.com/vendora/backend/internal/infrastructure/migration"
	"github.com/vendora/backend/internal/infrastructure/payment"
	"github.com/vendora/backend/internal/infrastructure/persistence"
	"github.com/vendora/backend/internal/infrastructure/telemetry"
	"github.com/vendora/backend/internal/interfaces/http/handler"
	"github.com/vendora/backend/internal/interfaces/http/router"
	"github.com/vendora/backend/migrations"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Telemetry comes first so the OTLP log bridge can be teed into the logger
	otel, err := telemetry.Setup(context.Background(), cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to set up telemetry", zap.Error(err))
	}
	log, err := logger.New(logCfg,
		logger.WithTee(otel.ZapCore(logger.ParseLevel(cfg.Log.Level))),
		logger.WithFields(zap.String("service", cfg.Telemetry.ServiceName)),
	)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Vendora backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("tracing", otel.TracingEnabled()),
	)

	metrics, err := telemetry.NewBillingMetrics(otel.Meter("billing"))
	if err != nil {
		log.Fatal("Failed to create billing metrics", zap.Error(err))
	}

	dbOpts := []persistence.Option{
		persistence.WithLogger(logger.NewGormLogger(log,
			logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		)),
	}
	if plugin := telemetry.GormPlugin(cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled); plugin != nil {
		dbOpts = append(dbOpts, persistence.WithPlugin(plugin))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrate(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	blacklist := newTokenBlacklist(cfg, log)
	jwtService := auth.NewJWTService(cfg.JWT, blacklist)

	// Repositories
	ledgerStore := persistence.NewGormLedgerStore(db.DB)
	usageService := billingapp.NewUsageService(billingapp.UsageServiceConfig{
		UsageRepo: persistence.NewGormUsageRecordRepository(db.DB),
		Counter:   persistence.NewGormUsageCounter(db.DB),
		Accounts:  persistence.NewGormAccountRepository(db.DB),
		Logger:    log,
	})
	ledgerService := billingapp.NewLedgerService(billingapp.LedgerServiceConfig{
		Store:  ledgerStore,
		Logger: log,
	})
	engine := billingapp.NewReconciliationEngine(billingapp.ReconciliationEngineConfig{
		Events:  persistence.NewGormWebhookEventRepository(db.DB),
		Store:   ledgerStore,
		Metrics: metrics,
		Logger:  log,
	})
	gate := billingapp.NewAdmissionGate(usageService, metrics, log)
	commerceService := commerceapp.NewService(persistence.NewGormCommerceRepository(db.Tenant()), usageService, log)

	registry := payment.NewRegistryFromConfig(cfg.Billing, log)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpEngine := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   otel.TracingEnabled(),
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
	}, log)
	httpEngine.GET("/health", healthHandler(db))

	r := router.NewRouter(httpEngine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.Handlers{
		Subscription: handler.NewSubscriptionHandler(usageService, ledgerService),
		Resource:     handler.NewResourceHandler(commerceService),
		Report:       handler.NewReportHandler(usageService),
		Admin:        handler.NewAdminHandler(ledgerService, usageService),
		Webhook:      handler.NewWebhookHandler(registry, engine, cfg.HTTP.WebhookMaxBody),
	}, router.Guards{
		Tokens: jwtService,
		Gate:   gate,
		Plans:  ledgerService,
	})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := otel.Shutdown(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}
	if closer, ok := blacklist.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	log.Info("Server exited gracefully")
}

// newTokenBlacklist connects the Redis blacklist, falling back to an
// in-process one when Redis is not configured or unreachable.
func newTokenBlacklist(cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	if cfg.Redis.Host == "" {
		log.Warn("Redis not configured, token revocation is process-local")
		return auth.NewInMemoryTokenBlacklist()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bl, err := auth.NewRedisTokenBlacklist(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, token revocation is process-local",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Error(err),
		)
		return auth.NewInMemoryTokenBlacklist()
	}
	return bl
}

func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	return m.Up()
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
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
