package env

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppConfig AppConfig
}

type AppConfig struct {
	Name          string
	Env           string
	Port          uint
	LogFormat     string
	LogLevel      string
	SentryDSN     string
	Source        string
	MetricsPrefix string

	MockServer MockServerConfig

	RpcTimeout     time.Duration
	RpcMaxAttempts uint
	NetworkTests   bool

	ProbeURL  string
	ProbeMode string
}

type MockServerConfig struct {
	Image                string
	Platform             string
	LogLevel             string
	ExpectationsPath     string
	ProxyExpectationPath string
	StartupTimeout       time.Duration
	StartupDelay         time.Duration
	InitDelay            time.Duration
	RyukDisabled         bool
}

const (
	DefaultImage            = `mockserver/mockserver:latest`
	DefaultPlatform         = `linux/amd64`
	DefaultMockExpectations = `mocks/polkadot-full-mock.json`
	DefaultProxyExpectation = `mocks/polkadot-proxy-forwarding.json`
)

var (
	cfg Config

	onceDefaultClient sync.Once
)

// Read loads configuration once per process. An absent .env file is not an
// error: environment variables and defaults still apply.
func Read(configPath string) (*Config, error) {
	var err error

	onceDefaultClient.Do(func() {
		var loaded *Config
		loaded, err = load(viper.New(), configPath)
		if err == nil {
			cfg = *loaded
		}
	})

	return &cfg, err
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetConfigType("env")

	if len(configPath) != 0 {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigFile(".env")
	}

	setDefaults(v)

	v.AutomaticEnv()
	if viperErr := v.ReadInConfig(); viperErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(viperErr, &notFound) && !errors.Is(viperErr, fs.ErrNotExist) {
			return nil, viperErr
		}
	}

	attempts := v.GetUint("RPC_MAX_ATTEMPTS")
	if attempts == 0 {
		attempts = 1
	}

	return &Config{
		AppConfig: AppConfig{
			Name:          v.GetString("APP_NAME"),
			Env:           v.GetString("ENV"),
			Port:          v.GetUint("PORT"),
			LogFormat:     v.GetString("LOG_FORMAT"),
			LogLevel:      v.GetString("LOG_LEVEL"),
			SentryDSN:     v.GetString("SENTRY_DSN"),
			Source:        v.GetString("SOURCE"),
			MetricsPrefix: v.GetString("METRICS_PREFIX"),
			MockServer: MockServerConfig{
				Image:                v.GetString("MOCKSERVER_IMAGE"),
				Platform:             v.GetString("MOCKSERVER_PLATFORM"),
				LogLevel:             v.GetString("MOCKSERVER_LOG_LEVEL"),
				ExpectationsPath:     v.GetString("MOCKSERVER_EXPECTATIONS"),
				ProxyExpectationPath: v.GetString("MOCKSERVER_PROXY_EXPECTATIONS"),
				StartupTimeout:       v.GetDuration("MOCKSERVER_STARTUP_TIMEOUT"),
				StartupDelay:         v.GetDuration("MOCKSERVER_STARTUP_DELAY"),
				InitDelay:            v.GetDuration("MOCKSERVER_INIT_DELAY"),
				RyukDisabled:         v.GetBool("TESTCONTAINERS_RYUK_DISABLED"),
			},
			RpcTimeout:     v.GetDuration("RPC_TIMEOUT"),
			RpcMaxAttempts: attempts,
			NetworkTests:   v.GetBool("NETWORK_TESTS"),
			ProbeURL:       v.GetString("PROBE_URL"),
			ProbeMode:      v.GetString("PROBE_MODE"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "substrate-mockrig")
	v.SetDefault("ENV", "local")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("METRICS_PREFIX", "mockrig")

	v.SetDefault("MOCKSERVER_IMAGE", DefaultImage)
	v.SetDefault("MOCKSERVER_PLATFORM", DefaultPlatform)
	v.SetDefault("MOCKSERVER_LOG_LEVEL", "INFO")
	v.SetDefault("MOCKSERVER_EXPECTATIONS", DefaultMockExpectations)
	v.SetDefault("MOCKSERVER_PROXY_EXPECTATIONS", DefaultProxyExpectation)
	v.SetDefault("MOCKSERVER_STARTUP_TIMEOUT", 60*time.Second)
	v.SetDefault("MOCKSERVER_STARTUP_DELAY", time.Duration(0))
	v.SetDefault("MOCKSERVER_INIT_DELAY", time.Duration(0))
	v.SetDefault("TESTCONTAINERS_RYUK_DISABLED", true)

	v.SetDefault("RPC_TIMEOUT", 30*time.Second)
	v.SetDefault("RPC_MAX_ATTEMPTS", 1)
	v.SetDefault("NETWORK_TESTS", false)
	v.SetDefault("PROBE_MODE", "mock")
}

// ResolvePath joins a relative path onto root. Absolute paths pass through.
func ResolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(root, path)
}
