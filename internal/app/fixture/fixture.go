package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/container"
	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
	"github.com/lidofinance/substrate-mockrig/internal/env"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/mockserver"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate"
)

// Runtime is a running MockServer instance reachable over HTTP.
type Runtime interface {
	BaseURL() string
	Terminate(ctx context.Context) error
}

type Provisioner interface {
	Provision(ctx context.Context, expectationsPath string) (Runtime, error)
}

type ProvisionFunc func(ctx context.Context, expectationsPath string) (Runtime, error)

func (f ProvisionFunc) Provision(ctx context.Context, expectationsPath string) (Runtime, error) {
	return f(ctx, expectationsPath)
}

// Containers provisions a fresh MockServer container per Start.
func Containers(p *container.Provisioner) Provisioner {
	return ProvisionFunc(func(ctx context.Context, expectationsPath string) (Runtime, error) {
		ms, err := p.Provision(ctx, expectationsPath)
		if err != nil {
			return nil, err
		}
		return ms, nil
	})
}

var ErrNotStarted = errors.New("fixture is not started")

// Fixture owns one MockServer for the lifetime of a suite.
type Fixture struct {
	cfg         *env.AppConfig
	log         *slog.Logger
	metrics     *metrics.Store
	provisioner Provisioner
	runtime     Runtime

	BaseURL string
	RPC     *substrate.Client
	Admin   *mockserver.Client
}

func New(cfg *env.AppConfig, log *slog.Logger, metricsStore *metrics.Store, provisioner Provisioner) *Fixture {
	return &Fixture{
		cfg:         cfg,
		log:         log,
		metrics:     metricsStore,
		provisioner: provisioner,
	}
}

// Start provisions MockServer, loads expectationsPath through the admin API
// and smoke-tests it with system_name. On any failure the runtime is torn
// down before returning.
func (f *Fixture) Start(ctx context.Context, expectationsPath string) error {
	runtime, err := f.provisioner.Provision(ctx, expectationsPath)
	if err != nil {
		return err
	}

	f.runtime = runtime
	f.BaseURL = runtime.BaseURL()
	f.log.Info("MockServer ready", slog.String("baseURL", f.BaseURL))

	if f.cfg.MockServer.InitDelay > 0 {
		select {
		case <-ctx.Done():
			return f.abort(ctx, ctx.Err())
		case <-time.After(f.cfg.MockServer.InitDelay):
		}
	}

	httpClient := &http.Client{Timeout: f.cfg.RpcTimeout}
	f.Admin = mockserver.New(f.BaseURL, httpClient, f.metrics)
	f.RPC = substrate.NewClient(f.BaseURL, httpClient, f.metrics, f.cfg.RpcMaxAttempts)

	status, err := f.Admin.LoadExpectationsFile(ctx, expectationsPath)
	if err != nil {
		f.log.Error(fmt.Sprintf("Could not initialize MockServer: %v", err))
		return f.abort(ctx, err)
	}
	f.log.Info(fmt.Sprintf("Substrate RPC expectations loaded into MockServer (%d)", status))

	name, err := f.RPC.SystemName(ctx)
	if err != nil {
		f.log.Error(fmt.Sprintf("MockServer health check failed: %v", err))
		return f.abort(ctx, fmt.Errorf("mockserver health check failed: %w", err))
	}
	f.log.Info(fmt.Sprintf("system_name response: '%s'", *name.Result))

	return nil
}

// Stop terminates the runtime. Failures are logged as warnings and returned
// for the caller to ignore or report.
func (f *Fixture) Stop(ctx context.Context) error {
	if f.runtime == nil {
		return ErrNotStarted
	}

	err := f.runtime.Terminate(ctx)
	if err != nil {
		f.log.Warn(fmt.Sprintf("Error stopping container: %v", err))
	}
	f.runtime = nil

	return err
}

func (f *Fixture) abort(ctx context.Context, cause error) error {
	if stopErr := f.Stop(context.WithoutCancel(ctx)); stopErr != nil {
		return errors.Join(cause, stopErr)
	}

	return cause
}
