package observability

import (
	"strings"

	"github.com/smallbiznis/greentrack/internal/config"
	"github.com/smallbiznis/greentrack/internal/observability/logger"
	"github.com/smallbiznis/greentrack/internal/observability/metrics"
	"github.com/smallbiznis/greentrack/internal/observability/tracing"
)

const defaultServiceName = "greentrack"

// Config splits the application config into the logger, tracing and
// metrics settings of one greentrack process.
type Config struct {
	Logger  logger.Config
	Tracing tracing.Config
	Metrics metrics.Config
}

func LoadConfig(cfg config.Config) Config {
	service := strings.TrimSpace(cfg.AppName)
	if service == "" {
		service = defaultServiceName
	}
	env := strings.TrimSpace(cfg.Environment)
	version := strings.TrimSpace(cfg.AppVersion)
	debug := cfg.Log.Level == "debug" || isDevEnv(env)

	return Config{
		Logger: logger.Config{
			ServiceName:         service,
			Environment:         env,
			Version:             version,
			Level:               cfg.Log.Level,
			Format:              cfg.Log.Format,
			Debug:               debug,
			IncludeCaller:       true,
			IncludeStackOnError: debug,
		},
		Tracing: tracing.Config{
			Enabled:          cfg.Otel.Enabled,
			ServiceName:      service,
			ServiceVersion:   version,
			Environment:      env,
			ExporterEndpoint: cfg.Otel.Endpoint,
			ExporterProtocol: cfg.Otel.Protocol,
			SamplingRatio:    cfg.Otel.SamplingRatio,
		},
		Metrics: metrics.Config{
			Enabled:          cfg.Otel.Enabled,
			ExporterEndpoint: cfg.Otel.Endpoint,
			ExporterProtocol: cfg.Otel.Protocol,
			ServiceName:      service,
			Environment:      env,
		},
	}
}

// Debug reports whether request logs carry stacks.
func (c Config) Debug() bool {
	return c.Logger.Debug
}

func isDevEnv(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
