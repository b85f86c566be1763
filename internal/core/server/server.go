// Package server assembles the HTTP router and runs the listeners.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/county-overlay/internal/api"
	"github.com/mohammed-shakir/county-overlay/internal/core/config"
	"github.com/mohammed-shakir/county-overlay/internal/core/health"
	middleware "github.com/mohammed-shakir/county-overlay/internal/core/middleware"
	"github.com/mohammed-shakir/county-overlay/internal/metrics"
)

type Routes struct {
	API   *api.Handler
	Ready []health.Component
	// served on the main listener unless cfg.MetricsAddr is set
	Metrics *metrics.Provider
}

func NewRouter(cfg config.Config, logger *slog.Logger, routes Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(routes.Ready...))
	if routes.Metrics != nil && cfg.MetricsEnabled && cfg.MetricsAddr == "" {
		r.Method(http.MethodGet, routes.Metrics.Path(), routes.Metrics.Handler())
	}
	if routes.API != nil {
		routes.API.Register(r)
	}
	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, name, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "server", name, "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
