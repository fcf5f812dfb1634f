package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
	"github.com/lidofinance/substrate-mockrig/internal/env"
	"github.com/lidofinance/substrate-mockrig/internal/http/handlers/expectations"
	"github.com/lidofinance/substrate-mockrig/internal/http/handlers/health"
	"github.com/lidofinance/substrate-mockrig/internal/http/handlers/requests"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/mockserver"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

type App struct {
	env     *env.AppConfig
	Logger  *slog.Logger
	Metrics *metrics.Store
	Admin   *mockserver.Client
}

func New(config *env.AppConfig, logger *slog.Logger, promStore *metrics.Store, admin *mockserver.Client) *App {
	return &App{
		env:     config,
		Logger:  logger,
		Metrics: promStore,
		Admin:   admin,
	}
}

func (a *App) RunHTTPServer(ctx context.Context, g *errgroup.Group, appPort uint, router http.Handler) {
	server := &http.Server{
		Addr:           fmt.Sprintf(`:%d`, appPort),
		Handler:        router,
		ReadTimeout:    defaultReadTimeout,
		WriteTimeout:   defaultWriteTimeout,
		IdleTimeout:    defaultIdleTimeout,
		MaxHeaderBytes: http.DefaultMaxHeaderBytes,
	}

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
}

func (a *App) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	a.registerMockRoutes(r)
	a.registerInfraRoutes(r)
}

func (a *App) registerInfraRoutes(r chi.Router) {
	r.Get("/health", health.New(a.Admin).Handler)
	r.Get("/metrics", promhttp.HandlerFor(a.Metrics.Prometheus, promhttp.HandlerOpts{}).ServeHTTP)

	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	r.HandleFunc("/debug/pprof/{action}", pprof.Index)
}

// registerMockRoutes exposes the MockServer control plane of the running
// fixture.
func (a *App) registerMockRoutes(r chi.Router) {
	expectationsH := expectations.New(a.Logger, a.Admin)
	r.Put("/expectations", expectationsH.Handler)
	r.Put("/reset", expectationsH.ResetHandler)

	r.Get("/requests", requests.New(a.Logger, a.Admin).Handler)
}
