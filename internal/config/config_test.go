package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FACTOR_TIMEOUT", "")
	t.Setenv("RECOMPUTE_LOCK_BACKEND", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.Factor.Timeout)
	assert.Equal(t, LockBackendMemory, cfg.Lock.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Otel.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Otel.Endpoint)
	assert.Equal(t, "grpc", cfg.Otel.Protocol)
	assert.InDelta(t, 0.1, cfg.Otel.SamplingRatio, 1e-12)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FACTOR_TIMEOUT", "750ms")
	t.Setenv("RECOMPUTE_LOCK_BACKEND", "REDIS")
	t.Setenv("SCHEDULER_INTERVAL", "not-a-duration")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "7")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "1.5")

	cfg := Load()
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "collector:4317", cfg.Otel.Endpoint)
	assert.Equal(t, "http", cfg.Otel.Protocol)
	assert.InDelta(t, 0.1, cfg.Otel.SamplingRatio, 1e-12)
	assert.Equal(t, 750*time.Millisecond, cfg.Factor.Timeout)
	assert.Equal(t, LockBackendRedis, cfg.Lock.Backend)
	assert.Equal(t, time.Hour, cfg.SchedulerInterval)
	assert.Equal(t, 7, cfg.DBMaxOpenConn)
}

func TestEngineConfigDefaultsWhenFileMissing(t *testing.T) {
	holder, err := LoadEngineConfigHolder(t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 6, cfg.WindowMonths)
	assert.Equal(t, 120, cfg.MaxWindowMonths)
	assert.Equal(t, 60, cfg.MaxHorizonMonths)
	assert.InDelta(t, 0.05, cfg.Epsilon, 1e-12)
	assert.InDelta(t, 2.31, cfg.FallbackFactors["fuel"], 1e-12)
	assert.NotEmpty(t, cfg.Recommendations["electricity"])
}

func TestEngineConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `forecast:
  windowMonths: 12
  epsilon: 0.1
  fallbackFactors:
    electricity: 0.6
    fuel: 2.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forecast.yml"), []byte(content), 0o600))

	holder, err := LoadEngineConfigHolder(dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 12, cfg.WindowMonths)
	assert.InDelta(t, 0.1, cfg.Epsilon, 1e-12)
	assert.InDelta(t, 0.01, cfg.FlatThreshold, 1e-12)
	assert.Len(t, cfg.FallbackFactors, 2)
	assert.InDelta(t, 0.6, cfg.FallbackFactors["electricity"], 1e-12)
	assert.NotEmpty(t, cfg.Recommendations["water"])
}

func TestEngineConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	content := `forecast:
  windowMonths: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forecast.yml"), []byte(content), 0o600))

	_, err := LoadEngineConfigHolder(dir)
	assert.Error(t, err)
}

func TestEngineConfigHolderSetValidates(t *testing.T) {
	holder := NewStaticEngineConfigHolder(DefaultEngineConfig())

	bad := DefaultEngineConfig()
	bad.FallbackFactors = map[string]float64{"fuel": -1}
	assert.Error(t, holder.Set(bad))
	assert.InDelta(t, 2.31, holder.Get().FallbackFactors["fuel"], 1e-12)

	narrow := DefaultEngineConfig()
	narrow.MaxWindowMonths = narrow.WindowMonths - 1
	assert.Error(t, holder.Set(narrow))

	noHorizon := DefaultEngineConfig()
	noHorizon.MaxHorizonMonths = 0
	assert.Error(t, holder.Set(noHorizon))

	good := DefaultEngineConfig()
	good.WindowMonths = 3
	require.NoError(t, holder.Set(good))
	assert.Equal(t, 3, holder.Get().WindowMonths)
}
