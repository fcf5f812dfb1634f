package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
	"github.com/lidofinance/substrate-mockrig/internal/env"
)

const (
	Port                 nat.Port = "1080/tcp"
	ExpectationsMount             = "/mockserver/expectations.json"
	InitializationEnvKey          = "MOCKSERVER_INITIALIZATION_JSON_PATH"
	LogLevelEnvKey                = "MOCKSERVER_LOG_LEVEL"
	ryukDisabledEnvKey            = "TESTCONTAINERS_RYUK_DISABLED"
)

const defaultStartupTimeout = 60 * time.Second

var ErrContainerNotRunning = errors.New("mockserver container is not running")

// MockServer is a started MockServer container.
type MockServer struct {
	container testcontainers.Container
	baseURL   string
	log       *slog.Logger
}

func (m *MockServer) BaseURL() string {
	return m.baseURL
}

func (m *MockServer) Terminate(ctx context.Context) error {
	if err := m.container.Terminate(ctx); err != nil {
		return fmt.Errorf("could not terminate mockserver container: %w", err)
	}

	m.log.Info("MockServer container terminated", slog.String("baseURL", m.baseURL))
	return nil
}

type Provisioner struct {
	cfg     env.MockServerConfig
	log     *slog.Logger
	metrics *metrics.Store
}

func NewProvisioner(cfg env.MockServerConfig, log *slog.Logger, metricsStore *metrics.Store) *Provisioner {
	return &Provisioner{
		cfg:     cfg,
		log:     log,
		metrics: metricsStore,
	}
}

// Request describes the container for expectationsPath. The file is copied
// read-only into the container and MockServer loads it on boot.
func (p *Provisioner) Request(expectationsPath string) (testcontainers.ContainerRequest, error) {
	hostPath, err := filepath.Abs(expectationsPath)
	if err != nil {
		return testcontainers.ContainerRequest{}, fmt.Errorf("could not resolve expectations path: %w", err)
	}
	if _, statErr := os.Stat(hostPath); statErr != nil {
		return testcontainers.ContainerRequest{}, fmt.Errorf("expectations file: %w", statErr)
	}

	startupTimeout := p.cfg.StartupTimeout
	if startupTimeout <= 0 {
		startupTimeout = defaultStartupTimeout
	}

	return testcontainers.ContainerRequest{
		Image:         p.cfg.Image,
		ImagePlatform: p.cfg.Platform,
		ExposedPorts:  []string{string(Port)},
		Env: map[string]string{
			InitializationEnvKey: ExpectationsMount,
			LogLevelEnvKey:       p.cfg.LogLevel,
		},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      hostPath,
				ContainerFilePath: ExpectationsMount,
				FileMode:          0o444,
			},
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(Port),
			wait.ForHTTP("/mockserver/status").
				WithPort(Port).
				WithMethod(http.MethodPut).
				WithStatusCodeMatcher(func(status int) bool {
					return status == http.StatusOK
				}),
		).WithDeadline(startupTimeout),
	}, nil
}

func (p *Provisioner) Provision(ctx context.Context, expectationsPath string) (*MockServer, error) {
	if p.cfg.RyukDisabled {
		if err := os.Setenv(ryukDisabledEnvKey, "true"); err != nil {
			return nil, err
		}
	}

	req, err := p.Request(expectationsPath)
	if err != nil {
		return nil, err
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		p.countStart(metrics.StatusFail)
		if c != nil {
			err = fmt.Errorf("%w\nlogs: %s", err, readLogs(ctx, c))
			_ = c.Terminate(ctx)
		}
		return nil, fmt.Errorf("could not start mockserver container: %w", err)
	}

	if p.cfg.StartupDelay > 0 {
		if sleepErr := sleep(ctx, p.cfg.StartupDelay); sleepErr != nil {
			p.countStart(metrics.StatusFail)
			_ = c.Terminate(context.WithoutCancel(ctx))
			return nil, sleepErr
		}
	}

	state, err := c.State(ctx)
	if err != nil {
		p.countStart(metrics.StatusFail)
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("could not inspect mockserver container: %w", err)
	}
	if !state.Running {
		p.countStart(metrics.StatusFail)
		logs := readLogs(ctx, c)
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("%w. Status: %s. Logs: %s", ErrContainerNotRunning, state.Status, logs)
	}

	host, err := c.Host(ctx)
	if err != nil {
		p.countStart(metrics.StatusFail)
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("could not get mockserver host: %w", err)
	}

	mapped, err := c.MappedPort(ctx, Port)
	if err != nil {
		p.countStart(metrics.StatusFail)
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("could not get mapped port for container: %w", err)
	}

	p.countStart(metrics.StatusOk)
	baseURL := fmt.Sprintf("http://%s:%s", host, mapped.Port())
	p.log.Info("MockServer container started",
		slog.String("image", p.cfg.Image),
		slog.String("port", mapped.Port()),
		slog.String("baseURL", baseURL),
	)

	return &MockServer{
		container: c,
		baseURL:   baseURL,
		log:       p.log,
	}, nil
}

func (p *Provisioner) countStart(status string) {
	p.metrics.ContainerStarts.With(prometheus.Labels{metrics.Status: status}).Inc()
}

func readLogs(ctx context.Context, c testcontainers.Container) string {
	rc, err := c.Logs(ctx)
	if err != nil {
		return fmt.Sprintf("<logs unavailable: %v>", err)
	}
	defer rc.Close()

	logs, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Sprintf("<logs unavailable: %v>", err)
	}

	return string(logs)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
