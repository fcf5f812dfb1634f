package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/lidofinance/substrate-mockrig/internal/app/fixture"
	"github.com/lidofinance/substrate-mockrig/internal/app/server"
	"github.com/lidofinance/substrate-mockrig/internal/connectors/container"
	"github.com/lidofinance/substrate-mockrig/internal/connectors/logger"
	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
	"github.com/lidofinance/substrate-mockrig/internal/env"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	cfg, envErr := env.Read("")
	if envErr != nil {
		fmt.Println("Read env error:", envErr.Error())
		return
	}

	log, sentryClient, logErr := logger.New(&cfg.AppConfig)
	if logErr != nil {
		fmt.Println("Logger error:", logErr.Error())
		return
	}
	if sentryClient != nil {
		defer sentryClient.Flush(sentryFlushTimeout)
	}

	metricsStore := metrics.New(prometheus.NewRegistry(), cfg.AppConfig.MetricsPrefix, cfg.AppConfig.Name, cfg.AppConfig.Env)
	metricsStore.BuildInfo.Inc()

	provisioner := container.NewProvisioner(cfg.AppConfig.MockServer, log, metricsStore)
	fx := fixture.New(&cfg.AppConfig, log, metricsStore, fixture.Containers(provisioner))

	expectationsPath := cfg.AppConfig.MockServer.ExpectationsPath
	if len(os.Args) > 1 {
		expectationsPath = os.Args[1]
	}

	if err := fx.Start(ctx, env.ResolvePath(".", expectationsPath)); err != nil {
		log.Error(fmt.Sprintf(`Could not start MockServer: %v`, err))
		return
	}

	app := server.New(&cfg.AppConfig, log, metricsStore, fx.Admin)

	r := chi.NewRouter()
	app.RegisterRoutes(r)
	app.RunHTTPServer(gCtx, g, cfg.AppConfig.Port, r)

	log.Info(fmt.Sprintf(`Started %s: JSON-RPC mock at %s, control plane on :%d`,
		cfg.AppConfig.Name, fx.BaseURL, cfg.AppConfig.Port))

	if err := g.Wait(); err != nil {
		log.Error(err.Error())
	}

	_ = fx.Stop(context.Background())

	fmt.Println(`Main done`)
}
