package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecomputeLabelsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRecompute("activity", nil, time.Millisecond)
	m.ObserveRecompute("activity", errors.New("boom"), time.Millisecond)
	m.ObserveRecompute("activity", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recomputes.WithLabelValues("activity", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputes.WithLabelValues("activity", "error")))
}

func TestObserveActivityOnlyAddsPositiveSavings(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveActivity("create", "electricity", 45)
	m.ObserveActivity("create", "electricity", 0)
	m.ObserveActivity("delete", "", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.activities.WithLabelValues("create", "electricity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activities.WithLabelValues("delete", "unknown")))
	assert.Equal(t, 45.0, testutil.ToFloat64(m.co2Saved.WithLabelValues("electricity")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPIRequest("GET", "/health", "200", time.Millisecond)
	m.ObserveFactorLookup("fuel", "fallback")
	m.ObserveForecast("ok")
}
