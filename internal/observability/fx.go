package observability

import (
	"github.com/smallbiznis/greentrack/internal/observability/logger"
	"github.com/smallbiznis/greentrack/internal/observability/metrics"
	"github.com/smallbiznis/greentrack/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(c Config) logger.Config { return c.Logger },
		func(c Config) tracing.Config { return c.Tracing },
		func(c Config) metrics.Config { return c.Metrics },
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
	),
	// Tracer and scheduler metrics are global; build them before any
	// request or sweep runs.
	fx.Invoke(func(_ *sdktrace.TracerProvider, cfg metrics.Config) {
		metrics.SchedulerWithConfig(cfg)
	}),
)
