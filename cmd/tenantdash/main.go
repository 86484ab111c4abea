package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/caravela-labs/tenantdash/internal/config"
	"github.com/caravela-labs/tenantdash/internal/section"
	"github.com/caravela-labs/tenantdash/internal/server"
	"github.com/caravela-labs/tenantdash/internal/store"
	"github.com/caravela-labs/tenantdash/internal/store/blob"
	"github.com/caravela-labs/tenantdash/internal/store/memory"
	"github.com/caravela-labs/tenantdash/internal/store/sqldb"
	"github.com/caravela-labs/tenantdash/internal/telemetry"
	"github.com/caravela-labs/tenantdash/internal/tenant"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("tenantdash", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	blobs, err := blob.New(cfg.Blobs.Dir)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	factory := store.NewFactory(backend, blobs)
	defer factory.Close()

	srv := server.New(server.Options{
		Port:     cfg.Server.Port,
		Logger:   logger,
		Resolver: tenant.NewResolver(cfg.Resolver.ReservedSegments),
		Registry: tenant.NewRegistry(newConfigSource(cfg)),
		Factory:  factory,
		Sections: section.NewRegistry(),
		Blobs:    blobs,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("tenantdash started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
		slog.String("tenant_source", cfg.Tenants.Source),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}

func newBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memory.New(), nil
	default:
		s, err := sqldb.New(sqldb.Config{
			Driver: cfg.Storage.Database.Driver,
			DSN:    cfg.Storage.Database.DSN,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newConfigSource(cfg *config.Config) tenant.ConfigSource {
	if cfg.Tenants.Source == "registry" {
		return tenant.NewHTTPSource(cfg.Tenants.RegistryURL, nil)
	}
	return tenant.NewStaticSource(cfg.Tenants.Entries)
}
