package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"docvault/docs"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logging"
	"docvault/internal/otel"
	"docvault/internal/repository"
	"docvault/internal/repository/memory"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
	"docvault/internal/validator"
)

// @title Clinical Document Vault API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server_exit", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) error {
	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	deps := handlers.Dependencies{Gatherer: prometheus.DefaultGatherer}

	v := validator.New(validator.Rules{
		AllowedMimeTypes:  cfg.Vault.AllowedMimeTypes,
		MaxFileSize:       cfg.Vault.MaxFileSize,
		TextLikeMimeTypes: cfg.Vault.TextLikeMimeTypes,
	})

	var repo repository.DocumentRepository
	switch cfg.RepositoryBackend {
	case config.RepositoryPostgres:
		db, err := openDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = postgres.NewDocumentPostgres(db, repository.WithValidator(v))
		deps.DB = db
	case config.RepositoryMemory:
		log.Warn("repository_in_memory", zap.String("detail", "documents are lost on restart"))
		repo = memory.NewDocumentMemory(repository.WithValidator(v))
	default:
		return fmt.Errorf("unknown repository backend %q", cfg.RepositoryBackend)
	}

	backend, mock, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	deps.MockStorage = mock
	log.Info("storage_selected", zap.String("backend", backend.Name()))

	gateway := storage.NewGateway(backend, v, storage.GatewayConfig{
		UploadURLTTL:   cfg.Vault.UploadURLTTL,
		DownloadURLTTL: cfg.Vault.DownloadURLTTL,
	})

	metrics, err := service.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register vault metrics: %w", err)
	}
	deps.Docs = service.NewDocumentService(repo, gateway, v, metrics, log, service.Options{
		SniffBytes:      cfg.Vault.SniffBytes,
		DefaultPageSize: cfg.Vault.DefaultPageSize,
		MaxPageSize:     cfg.Vault.MaxPageSize,
		RecentDocuments: cfg.Vault.RecentDocuments,
	})

	promMw, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Mock storage uploads arrive through this app.
		BodyLimit: bodyLimit(cfg.Vault.MaxFileSize),
		// Actor headers and route params outlive the request as stored metadata and span attributes.
		Immutable: true,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMw.Handler())

	handlers.RegisterRoutes(app, deps)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("server_start", zap.String("addr", ":"+cfg.Port), zap.String("public_base_url", cfg.PublicBaseURL))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(sctx)
}

func openDatabase(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// openStorage selects the object store once. The local backend is also returned so its routes can be
// mounted.
func openStorage(ctx context.Context, cfg *config.AppConfig) (storage.Backend, *storage.LocalBackend, error) {
	switch cfg.Storage.Backend {
	case config.StorageMinIO:
		b, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize object storage: %w", err)
		}
		return b, nil, nil
	case config.StorageMock:
		l, err := storage.NewLocal(strings.TrimRight(cfg.PublicBaseURL, "/")+handlers.MockStoragePrefix, []byte(cfg.Storage.MockSecret))
		if err != nil {
			return nil, nil, fmt.Errorf("initialize mock storage: %w", err)
		}
		return l, l, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func bodyLimit(maxFileSize int64) int {
	const floor = 4 * 1024 * 1024
	if limit := maxFileSize + 64*1024; limit > floor {
		return int(limit)
	}
	return floor
}
