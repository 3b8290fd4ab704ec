package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"optiplus/docs"
	"optiplus/internal/config"
	"optiplus/internal/database"
	handlers "optiplus/internal/http/handler"
	"optiplus/internal/http/middleware"
	"optiplus/internal/logging"
	"optiplus/internal/otel"
	"optiplus/internal/repository"
	"optiplus/internal/repository/memory"
	"optiplus/internal/repository/postgres"
	"optiplus/internal/service"
	"optiplus/internal/storage"
	"optiplus/internal/store"
)

const shutdownTimeout = 10 * time.Second

// @title       Opti-Plus Dataset API
// @version     1.0
// @description Upload CSV datasets, browse them as tables and download them again.
// @BasePath    /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.AppConfig, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	objects, err := newObjectStorage(cfg)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	index, db, err := newIndex(ctx, cfg, objects, log)
	if err != nil {
		return fmt.Errorf("init dataset index: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cache := service.NewDatasetCache(cfg.Dataset.CacheSize, time.Duration(cfg.Dataset.CacheTTLSec)*time.Second, reg)
	datasetSvc := service.NewDatasetService(store.New(objects, index), cache, service.Config{
		PreviewRows:     cfg.Dataset.PreviewRows,
		ListConcurrency: cfg.Dataset.ListConcurrency,
		Logger:          log,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg, "/healthz")
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "optiplus",
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.Dataset.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Recover(log))
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	deps := []handlers.Pinger{objects}
	if db != nil {
		deps = append(deps, db)
	}
	handlers.RegisterRoutes(app, datasetSvc, deps...)
	handlers.RegisterDocs(app, docs.SwaggerInfo)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().
			Str("addr", addr).
			Str("storage", cfg.Dataset.StorageBackend).
			Str("index", cfg.Dataset.IndexBackend).
			Msg("http server listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func newObjectStorage(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Dataset.StorageBackend {
	case config.StorageLocal:
		return storage.NewLocal(cfg.Dataset.UploadDir)
	case config.StorageMinIO:
		return storage.NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Dataset.StorageBackend)
	}
}

// newIndex opens the id index. The memory index is rebuilt from the stored objects; the
// Postgres index is already durable. db is non-nil only for Postgres.
func newIndex(ctx context.Context, cfg *config.AppConfig, objects storage.Storage, log zerolog.Logger) (repository.DatasetRepository, *sql.DB, error) {
	switch cfg.Dataset.IndexBackend {
	case config.IndexMemory:
		idx := memory.New()
		skipped, err := idx.Rebuild(ctx, objects)
		if err != nil {
			return nil, nil, err
		}
		for _, key := range skipped {
			log.Warn().Str("key", key).Msg("ignoring object without dataset id")
		}
		log.Info().Int("datasets", idx.Len()).Msg("dataset index rebuilt")
		return idx, nil, nil
	case config.IndexPostgres:
		db, err := database.OpenIndex(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewDatasetPostgres(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown INDEX_BACKEND %q", cfg.Dataset.IndexBackend)
	}
}
