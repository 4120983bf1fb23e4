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

	"github.com/starford/whatday/internal/api"
	"github.com/starford/whatday/internal/pipeline"
	"github.com/starford/whatday/internal/sse"
	"github.com/starford/whatday/internal/storage"
	"github.com/starford/whatday/internal/store"
	"github.com/starford/whatday/internal/workspace"
)

var errConfigRequired = errors.New("config is required")

// pagesListThrottle limits pages.changed events on the SSE stream.
const pagesListThrottle = 2 * time.Second

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func newPipeline(cfg *Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	sched, err := cfg.Scan.Scheduler()
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		pipeline.WithScheduler(sched),
		pipeline.WithMaxNodes(cfg.Scan.MaxNodes),
		pipeline.WithAmbientLocale(cfg.Scan.AmbientLocale),
		pipeline.WithLogger(logger),
	), nil
}

// Run starts the page server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("pages_path", cfg.Pages.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("scan_strategy", cfg.Scan.Strategy),
		slog.String("ambient_locale", cfg.Scan.AmbientLocale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure page directory exists.
	if err := os.MkdirAll(cfg.Pages.Path, 0o755); err != nil {
		return fmt.Errorf("create pages dir: %w", err)
	}

	pages, err := storage.NewFS(cfg.Pages.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	pipe, err := newPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	broker := sse.NewBroker(sse.WithListThrottle(pagesListThrottle))
	defer broker.Close()

	ws := workspace.New(pages, db,
		workspace.WithPipeline(pipe),
		workspace.WithEvents(broker),
		workspace.WithLogger(logger),
		workspace.WithQuietPeriod(cfg.Scan.Debounce),
		workspace.WithSettings(cfg.Highlight),
	)
	defer ws.Close()

	// Load and highlight every page.
	if err := ws.Open(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, _, err := db.ListPages(1, 0); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the page directory; reloads publish page events to the broker.
	g.Go(func() error {
		return ws.Watch(gCtx, cfg.Pages.Path)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
