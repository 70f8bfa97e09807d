package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/kvstore"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	// A missing .env file is fine; real environment variables win.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Debug().
		Str("api_url", cfg.API.BaseURL).
		Str("store", cfg.Store.Backend).
		Str("profile", cfg.Store.Profile).
		Msg("starting storefront client")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the persistent store for this profile
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	app, err := newApp(cfg.API.BaseURL, cfg.API.RequestTimeout(), store, stdout, logger)
	if err != nil {
		return err
	}
	return app.execute(ctx, args)
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (kvstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory store, nothing will persist between runs")
		return kvstore.NewMemoryStore(), noop, nil

	case config.StoreFile:
		return kvstore.NewFileStore(cfg.Store.Path, cfg.Store.Profile, logger), noop, nil

	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := kvstore.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to migrate database: %w", err)
		}
		return kvstore.NewPostgresStore(pool, cfg.Store.Profile, logger), pool.Close, nil

	case config.StoreS3:
		store, err := kvstore.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, cfg.Store.Profile, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize S3 store: %w", err)
		}
		return store, noop, nil
	}

	return nil, noop, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}
