package observability

import (
	"testing"

	"github.com/smallbiznis/greentrack/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigSharesOtelSettings(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName:     " greentrack-sweeper ",
		AppVersion:  "1.2.0",
		Environment: "production",
		Log:         config.LogConfig{Level: "info", Format: "json"},
		Otel: config.OtelConfig{
			Enabled:       true,
			Endpoint:      "collector:4317",
			Protocol:      "grpc",
			SamplingRatio: 0.5,
		},
	})

	assert.Equal(t, "greentrack-sweeper", cfg.Logger.ServiceName)
	assert.Equal(t, "greentrack-sweeper", cfg.Tracing.ServiceName)
	assert.Equal(t, "greentrack-sweeper", cfg.Metrics.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Tracing.ServiceVersion)
	assert.True(t, cfg.Tracing.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "collector:4317", cfg.Tracing.ExporterEndpoint)
	assert.Equal(t, cfg.Tracing.ExporterEndpoint, cfg.Metrics.ExporterEndpoint)
	assert.InDelta(t, 0.5, cfg.Tracing.SamplingRatio, 1e-12)
	assert.False(t, cfg.Debug())
	assert.False(t, cfg.Logger.IncludeStackOnError)
}

func TestLoadConfigDebug(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Config
		debug bool
	}{
		{name: "debug level", cfg: config.Config{Environment: "production", Log: config.LogConfig{Level: "debug"}}, debug: true},
		{name: "dev environment", cfg: config.Config{Environment: "Local", Log: config.LogConfig{Level: "info"}}, debug: true},
		{name: "production", cfg: config.Config{Environment: "production", Log: config.LogConfig{Level: "warn"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig(tt.cfg)
			assert.Equal(t, tt.debug, cfg.Debug())
			assert.Equal(t, tt.debug, cfg.Logger.IncludeStackOnError)
			assert.Equal(t, defaultServiceName, cfg.Logger.ServiceName)
		})
	}
}
