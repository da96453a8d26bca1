package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/solartek/internal"
	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/geo"
	"github.com/DukeRupert/solartek/internal/geo/mock"
	"github.com/DukeRupert/solartek/internal/geo/nominatim"
	"github.com/DukeRupert/solartek/internal/geo/viacep"
	"github.com/DukeRupert/solartek/internal/handler"
	"github.com/DukeRupert/solartek/internal/jobs"
	"github.com/DukeRupert/solartek/internal/metrics"
	"github.com/DukeRupert/solartek/internal/middleware"
	"github.com/DukeRupert/solartek/internal/repository"
	"github.com/DukeRupert/solartek/internal/service"
	"github.com/DukeRupert/solartek/internal/storage"
	"github.com/DukeRupert/solartek/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Record store and job queue
	store, queue, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Blob storage for backup snapshots
	blobs, err := newBlobStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Load every collection before serving
	session := app.NewSession(store, logger)
	if err := session.Load(ctx); err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}
	st := session.State()
	logger.Info("Records loaded",
		"clients", len(st.Clients),
		"services", len(st.Services),
		"expenses", len(st.Expenses),
	)

	// Initialize services
	locationService := service.NewLocationService(session, newGeoProvider(cfg, logger), logger)
	services := handler.Services{
		Clients:     service.NewClientService(session, queue, logger),
		Attachments: service.NewAttachmentService(session, service.NewAttachmentCodec(), logger),
		Finance:     service.NewFinanceService(session, logger),
		Backups:     service.NewBackupService(session, blobs, logger),
		Locations:   locationService,
		Store:       store,
	}

	// Background worker
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	var bgWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout
		if workerCfg.StaleJobThreshold < 2*workerCfg.JobTimeout {
			workerCfg.StaleJobThreshold = 2 * workerCfg.JobTimeout
		}

		bgWorker, err = worker.New(queue, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		bgWorker.Register(jobs.NewEnrichLocationHandler(locationService, logger))
		bgWorker.Start(workerCtx)
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := handler.NewRouter(services, logger)

	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("Metrics endpoint is not protected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	isSecure := cfg.Env != "development"
	logging := middleware.NewRequestLoggingMiddleware(logger)
	security := middleware.NewSecurityHeadersMiddleware(isSecure)
	rateLimit := middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(cfg.RateLimitWrites, cfg.RateLimitWindow, logger),
		logger,
	)
	stack := middleware.Stack(
		logging.Handler,
		metrics.Middleware,
		security.Handler,
		rateLimit.LimitWrites,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if bgWorker != nil {
		stopWorker()
		bgWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// openStore connects the configured record store and its job queue. The
// returned func releases the connection.
func openStore(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (repository.Store, repository.JobQueue, func(), error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("Using the in-memory record store; data is lost on restart",
			"max_bytes", cfg.MemoryStoreMaxBytes,
		)
		return repository.NewMemoryStore(cfg.MemoryStoreMaxBytes), repository.NewMemoryJobQueue(), func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	return repository.NewPostgresStore(db), repository.NewPostgresJobQueue(db), func() { db.Close() }, nil
}

// newBlobStorage returns the snapshot store for the configured provider.
func newBlobStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Endpoint:        cfg.R2Endpoint,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{BasePath: cfg.LocalStoragePath}, logger)
	}
}

// newGeoProvider pairs ViaCEP postal code lookups with Nominatim geocoding,
// or returns the canned provider for development.
func newGeoProvider(cfg *internal.Config, logger *slog.Logger) geo.Provider {
	if cfg.GeoProvider != "live" {
		logger.Info("Using mock geo provider")
		return mock.New(logger)
	}

	pc := geo.ProviderConfig{
		MaxRetries:     cfg.GeoMaxRetries,
		RetryBaseDelay: cfg.GeoRetryBaseDelay,
		RequestTimeout: cfg.GeoRequestTimeout,
		UserAgent:      cfg.GeoUserAgent,
	}
	return geo.Combine(
		viacep.New(viacep.Config{BaseURL: cfg.ViaCEPBaseURL, ProviderConfig: pc}, logger),
		nominatim.New(nominatim.Config{BaseURL: cfg.NominatimBaseURL, CountryCodes: "br", ProviderConfig: pc}, logger),
	)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
