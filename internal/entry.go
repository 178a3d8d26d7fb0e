// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/taxonomy-explorer/internal/api"
	"github.com/starford/taxonomy-explorer/internal/index"
	"github.com/starford/taxonomy-explorer/internal/mcpserver"
	"github.com/starford/taxonomy-explorer/internal/sse"
	"github.com/starford/taxonomy-explorer/internal/storage"
	"github.com/starford/taxonomy-explorer/internal/taxonomyservice"
)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// backend is the storage, index and service stack shared by the server and MCP commands.
type backend struct {
	store *storage.FS
	db    *index.DB
	svc   *taxonomyservice.Service
}

func openBackend(cfg *Config, logger *slog.Logger) (*backend, error) {
	if err := os.MkdirAll(cfg.Taxonomy.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create taxonomy dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Taxonomy.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, cfg.Taxonomy.File, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return &backend{
		store: store,
		db:    db,
		svc:   taxonomyservice.NewService(store, db, cfg.Taxonomy.File),
	}, nil
}

// Run starts the taxonomy server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("taxonomy_dir", cfg.Taxonomy.Dir),
		slog.String("taxonomy_file", cfg.Taxonomy.File),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.db.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	notify := func(kind, file string) {
		sum, err := be.db.SourceChecksum(file)
		if err != nil {
			logger.Warn("sse: checksum lookup failed", slog.String("path", file), slog.String("error", err.Error()))
		}
		broker.PublishChange(sse.Change{Kind: kind, Path: file, Checksum: sum})
	}
	be.svc.OnChange(notify)

	apiRouter := api.NewRouter(be.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := be.db.Source(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no taxonomy indexed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, be.db, be.store, cfg.Taxonomy.File, logger, notify)
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.db.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	g, gCtx := errgroup.WithContext(watchCtx)
	g.Go(func() error {
		return index.Watch(gCtx, be.db, be.store, cfg.Taxonomy.File, logger, func(kind, path string) {
			logger.Info("mcp: source reindexed", slog.String("op", kind), slog.String("path", path))
		})
	})

	logger.Info("mcp: serving on stdio", slog.String("taxonomy_file", cfg.Taxonomy.File))
	err = mcpserver.New(be.svc, cfg.Taxonomy.SkipCategories).ServeStdio()
	cancel()
	if werr := g.Wait(); werr != nil {
		logger.Warn("mcp: watcher stopped", slog.String("error", werr.Error()))
	}
	return err
}
