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

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/contentsvc"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/storage"
)

type runtime struct {
	logger *slog.Logger
	store  *storage.Store
	idx    *index.Index
	graph  *graph.DB
	svc    *contentsvc.Service
}

// bootstrap builds the shared stack: logger, store, index, adjacency cache,
// query engine, and the content service on top. logDest is os.Stdout for
// server modes and os.Stderr for MCP, whose stdout carries the protocol.
func bootstrap(cfg *Config, logDest io.Writer) (*runtime, error) {
	logger := slog.New(slog.NewJSONHandler(logDest, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("graph_dsn", cfg.Graph.DSN),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.New(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	idx, err := index.Open(store.IndexDir())
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	g, err := graph.Open(cfg.Graph.DSN)
	if err != nil {
		return nil, fmt.Errorf("init graph cache: %w", err)
	}
	if err := g.Load(store); err != nil {
		g.Close()
		return nil, fmt.Errorf("load graph cache: %w", err)
	}
	store.SetEdgeHook(g.Record)

	engine := search.NewEngine(store, idx, g)
	svc := contentsvc.NewService(store, idx, engine, logger)

	return &runtime{logger: logger, store: store, idx: idx, graph: g, svc: svc}, nil
}

// Run starts the HTTP server and the content watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logDest := io.Writer(os.Stdout)
	if app.logWriter != nil {
		logDest = app.logWriter
	}

	rt, err := bootstrap(cfg, logDest)
	if err != nil {
		return err
	}
	defer rt.graph.Close()
	logger := rt.logger

	// SSE broker, fed by the content service.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	rt.svc.SetNotifier(broker)

	apiRouter := api.NewRouter(rt.svc, rt.graph, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("othala content graph\n\napi:    /api\nhealth: /health/live\n"))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Content watcher keeps the index current with out-of-band node files.
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.idx, rt.store, logger); err != nil {
			logger.Warn("content watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

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

// RunMCP serves the content graph over MCP stdio.
func RunMCP(_ context.Context, cfg *Config) error {
	rt, err := bootstrap(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.graph.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc).ServeStdio()
}

// RunReindex rebuilds the search index once and exits.
func RunReindex(ctx context.Context, cfg *Config) error {
	rt, err := bootstrap(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.graph.Close()

	if err := rt.svc.Rebuild(ctx); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	rt.logger.Info("Index rebuilt",
		slog.Int("content", rt.svc.Count(ctx)),
		slog.Int("indexed", rt.svc.IndexedCount(ctx)))
	return nil
}

// RunImport ingests a directory of Markdown files and exits.
func RunImport(ctx context.Context, cfg *Config, dir string) error {
	rt, err := bootstrap(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.graph.Close()

	res, err := rt.svc.ImportDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	rt.logger.Info("Import finished",
		slog.Int("created", len(res.Created)),
		slog.Int("related", res.Related),
		slog.Int("skipped", res.Skipped),
		slog.Int("degraded", res.Degraded))
	return nil
}
