package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/logger"
	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
	"github.com/lidofinance/substrate-mockrig/internal/env"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate"
)

// probe runs the shape checks against any Substrate JSON-RPC endpoint and
// exits non-zero when one of them fails.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, envErr := env.Read("")
	if envErr != nil {
		fmt.Println("Read env error:", envErr.Error())
		os.Exit(1)
	}

	log, _, logErr := logger.New(&cfg.AppConfig)
	if logErr != nil {
		fmt.Println("Logger error:", logErr.Error())
		os.Exit(1)
	}

	if cfg.AppConfig.ProbeURL == "" {
		log.Error("PROBE_URL is empty")
		os.Exit(1)
	}

	metricsStore := metrics.New(prometheus.NewRegistry(), cfg.AppConfig.MetricsPrefix, cfg.AppConfig.Name, cfg.AppConfig.Env)
	httpClient := &http.Client{Timeout: cfg.AppConfig.RpcTimeout}
	client := substrate.NewClient(cfg.AppConfig.ProbeURL, httpClient, metricsStore, cfg.AppConfig.RpcMaxAttempts)

	reports, runErr := substrate.NewChecker(client).Run(ctx, cfg.AppConfig.ProbeMode)
	if runErr != nil {
		log.Error(fmt.Sprintf(`Probe error: %v`, runErr))
		os.Exit(1)
	}

	for _, r := range reports {
		if r.Err != nil {
			log.Error("check failed", slog.String("method", r.Method), slog.String("error", r.Err.Error()))
			continue
		}
		log.Info("check passed", slog.String("method", r.Method), slog.Any("value", r.Value))
	}

	if substrate.Failed(reports) {
		os.Exit(1)
	}
}
