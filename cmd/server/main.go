package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/recon-service/internal/adapters/database"
	"github.com/kevin07696/recon-service/internal/adapters/easebuzz"
	"github.com/kevin07696/recon-service/internal/adapters/payments"
	"github.com/kevin07696/recon-service/internal/adapters/postgres"
	"github.com/kevin07696/recon-service/internal/config"
	cronHandler "github.com/kevin07696/recon-service/internal/handlers/cron"
	reportHandler "github.com/kevin07696/recon-service/internal/handlers/report"
	"github.com/kevin07696/recon-service/internal/scheduler"
	merchantService "github.com/kevin07696/recon-service/internal/services/merchant"
	"github.com/kevin07696/recon-service/internal/services/reconciliation"
	pkghttp "github.com/kevin07696/recon-service/pkg/http"
	"github.com/kevin07696/recon-service/pkg/middleware"
	"github.com/kevin07696/recon-service/pkg/observability"
	"github.com/kevin07696/recon-service/pkg/resilience"
	"github.com/kevin07696/recon-service/pkg/security"
	"github.com/kevin07696/recon-service/pkg/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config lives in cfg, so fall back to a production logger here
		zap.Must(zap.NewProduction()).Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting reconciliation service",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
		zap.String("gateway", cfg.Gateway.Name),
		zap.String("secret_manager", cfg.Secrets.Backend),
	)

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	timeouts := initTimeouts(cfg)

	// Database
	dbCfg := database.PoolConfigFromDatabase(cfg.Database)

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := database.NewPostgreSQLAdapter(dbCtx, dbCfg, logger)
	dbCancel()
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}
	db.StartPoolMonitoring(ctx, 30*time.Second)

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
		zap.String("host", cfg.Database.Host),
	)

	// Gateway salts
	secretManager, err := initSecretManager(ctx, &cfg.Secrets, logger)
	if err != nil {
		db.Close()
		logger.Fatal("Failed to initialize secret manager", zap.Error(err))
	}
	credentials := merchantService.NewCredentialCache(secretManager, logger, cfg.Secrets.CacheTTL, cfg.Secrets.CacheMaxSize)

	// Collaborators
	loggerAdapter := security.NewZapLogger(logger)

	gatewayCfg := easebuzz.DefaultPayoutConfig()
	gatewayCfg.BaseURL = cfg.Gateway.BaseURL
	gatewayCfg.MaxRetries = cfg.Gateway.MaxRetries
	gatewayCfg.Timeouts = timeouts
	gateway := easebuzz.NewPayoutAdapter(
		gatewayCfg,
		pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(), cfg.Gateway.Timeout),
		loggerAdapter,
	)

	enrichment := payments.NewTransactionInfoAdapter(
		&payments.Config{
			BaseURL:     cfg.Payments.BaseURL,
			TokenSecret: cfg.Payments.TokenSecret,
			Timeouts:    timeouts,
		},
		pkghttp.NewHTTPClient(pkghttp.PaymentsServiceClientConfig(), cfg.Payments.Timeout),
		loggerAdapter,
	)

	// Repositories
	merchants := postgres.NewMerchantRepository(db.Pool())
	settlements := postgres.NewSettlementRepository(db.Pool())
	reconciliations := postgres.NewReconciliationRepository(db.Pool())
	refundRequests := postgres.NewRefundRequestRepository(db.Pool())

	// Services
	matcher := reconciliation.NewRefundMatcher(enrichment, refundRequests, logger)
	aggregator := reconciliation.NewAggregator(enrichment, matcher, settlements, reconciliations, timeouts, logger)
	reconService := reconciliation.NewService(
		merchants,
		credentials,
		gateway,
		aggregator,
		reconciliation.Config{
			Gateway:     cfg.Gateway.Name,
			Concurrency: reconciliation.MaxConcurrentMerchants,
			Timeouts:    timeouts,
			SchoolIDs:   cfg.Reconciliation.SchoolIDs,
		},
		logger,
	)

	// HTTP
	inflight := shutdown.NewInFlightTracker("http", logger)
	rateLimiter := middleware.NewRateLimiter(float64(cfg.Server.RateLimit), cfg.Server.RateBurst)

	triggerHandler := cronHandler.NewReconciliationHandler(reconService, timeouts, logger, cfg.Server.CronSecret)
	reports := reportHandler.NewHandler(settlements, reconciliations, timeouts, logger)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(observability.HTTPMetrics)
	router.Use(inflight.Middleware)

	router.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		triggerHandler.RegisterRoutes(r)
	})
	reports.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Manual runs hold the connection until the run finishes
		WriteTimeout: timeouts.Run + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthChecker := observability.NewHealthChecker(5 * time.Second)
	healthChecker.AddCheck("database", db.HealthCheck)
	metricsServer := observability.StartMetricsServer(cfg.Server.MetricsPort, healthChecker, logger)

	var sched *scheduler.Scheduler
	if cfg.Reconciliation.ScheduleEnabled {
		sched, err = scheduler.New(reconService, timeouts, logger)
		if err != nil {
			db.Close()
			logger.Fatal("Failed to initialize scheduler", zap.Error(err))
		}
		sched.Start()
	} else {
		logger.Warn("Scheduled reconciliation disabled; only the HTTP trigger will run")
	}

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	healthChecker.SetReady(true)

	// Steps stop in reverse registration order
	stopSequence := shutdown.NewSequence(logger, timeouts.Run+time.Minute)
	stopSequence.AddFunc("database", db.Close)
	stopSequence.AddFunc("background", cancelBackground)
	stopSequence.Add("metrics-server", metricsServer.Shutdown)
	stopSequence.AddFunc("rate-limiter", rateLimiter.Shutdown)
	stopSequence.Add("http-server", httpServer.Shutdown)
	stopSequence.Add("in-flight-requests", inflight.Shutdown)
	if sched != nil {
		stopSequence.Add("scheduler", sched.Stop)
	}
	stopSequence.AddFunc("readiness", func() { healthChecker.SetReady(false) })

	stopSequence.WaitForSignal()
}

// initLogger initializes the logger
func initLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.IsProduction() && !cfg.Logger.Development {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initTimeouts derives the timeout hierarchy from configuration
func initTimeouts(cfg *config.Config) *resilience.TimeoutConfig {
	timeouts := resilience.DefaultTimeoutConfig()
	if cfg.Reconciliation.RunTimeout > 0 {
		timeouts.Run = cfg.Reconciliation.RunTimeout
	}
	if cfg.Reconciliation.MerchantTimeout > 0 {
		timeouts.MerchantTask = cfg.Reconciliation.MerchantTimeout
	}
	if cfg.Gateway.Timeout > 0 {
		timeouts.ExternalAPI = cfg.Gateway.Timeout
	}
	return timeouts
}
