package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"council-assistant-backend/internal/catalog"
	"council-assistant-backend/internal/config"
	"council-assistant-backend/internal/db"
	"council-assistant-backend/internal/server"
	"council-assistant-backend/internal/store"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API (the default command)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger)
}

// serve runs the HTTP server, the idle-state janitor and, when enabled, the
// catalog watcher until ctx is done or one of them fails.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	storage, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	logShadowed(logger, cat)
	holder := catalog.NewHolder(cat)

	var watcher *catalog.Watcher
	if cfg.CatalogWatch {
		watcher, err = catalog.NewWatcher(cfg.CatalogFile, holder, logger)
		if err != nil {
			return err
		}
	}

	s, err := server.NewServer(cfg, storage, holder, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("council assistant listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageDriver),
			zap.Int("catalog_entries", cat.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return s.RunJanitor(gctx, janitorInterval)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}
	return g.Wait()
}

// openStorage builds the session storage named by STORAGE_DRIVER. SQL
// backends are migrated before use.
func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.SessionStorage, func(), error) {
	noop := func() {}
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return store.NewMemoryStore(cfg.SessionTTL), noop, nil
	case config.DriverFile:
		fs, err := store.NewFileStore(cfg.SessionDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session directory: %w", err)
		}
		return fs, noop, nil
	case config.DriverPostgres, config.DriverSQLite:
		database, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store.NewDatabaseStore(database), func() {
			if err := database.Close(); err != nil {
				logger.Warn("closing database", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func openDatabase(ctx context.Context, cfg config.Config, logger *zap.Logger) (*db.DB, error) {
	driver, dsn := db.DriverSQLite, cfg.SQLitePath
	if cfg.StorageDriver == config.DriverPostgres {
		driver, dsn = db.DriverPostgres, cfg.DatabaseURL
	}
	database, err := db.New(driver, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.RunMigrations(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}

func logShadowed(logger *zap.Logger, c *catalog.Catalog) {
	for _, sh := range c.Shadowed() {
		logger.Warn("catalog trigger can never match", zap.String("shadow", sh.String()))
	}
}
