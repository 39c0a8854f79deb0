// Package server wires the HTTP stack: router, middleware, handlers,
// and graceful shutdown.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/thegeek/eml-reader/internal/api"
	"github.com/thegeek/eml-reader/internal/config"
	"github.com/thegeek/eml-reader/internal/events"
	"github.com/thegeek/eml-reader/internal/health"
	"github.com/thegeek/eml-reader/internal/metrics"
	"github.com/thegeek/eml-reader/internal/middleware"
	"github.com/thegeek/eml-reader/internal/thread"
)

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully within the configured timeout.
func Run(cfg *config.Config, log *slog.Logger) error {
	registry := thread.NewRegistry(thread.RegistryConfig{
		MaxThreads: cfg.Registry.MaxThreads,
	})

	bus := events.NewBus(events.NewStore(1000))
	unsubscribe := bus.Subscribe(events.Wildcard, func(event events.Event) {
		threads, _ := registry.Stats()
		metrics.ThreadsActive.Set(float64(threads))
		log.Debug("thread activity",
			slog.String("type", string(event.Type)),
			slog.String("thread_id", event.ThreadID),
		)
	})
	defer unsubscribe()

	apiHandler := api.NewHandler(registry, bus, log, cfg.Server.MaxUploadBytes)
	healthHandler := health.NewHandler(registry, api.Version)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      NewRouter(apiHandler, healthHandler, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.String("addr", cfg.Server.Addr()))
		healthHandler.SetReady(true)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}

// NewRouter builds the chi router with the full middleware chain and all
// routes mounted.
func NewRouter(apiHandler *api.Handler, healthHandler *health.Handler, log *slog.Logger) chi.Router {
	processLimiter := middleware.NewRateLimiter(60, time.Minute)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.StructuredLogger(log))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(processLimiter.LimitByIP)
		api.RegisterRoutes(r, apiHandler)
	})

	return r
}
