package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module wires Prometheus metrics via Fx.
var Module = fx.Options(
	fx.Provide(func() *Metrics { return NewMetrics(prometheus.DefaultRegisterer) }),
)

// Metrics exposes Prometheus observability primitives for the carbon tracker.
type Metrics struct {
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	recomputes       *prometheus.CounterVec
	recomputeTime    *prometheus.HistogramVec
	factorLookups    *prometheus.CounterVec
	factorLookupTime prometheus.Histogram
	activities       *prometheus.CounterVec
	co2Saved         *prometheus.CounterVec
	forecasts        *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greentrack_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greentrack_api_duration_seconds",
		Help:    "API request latency per method/route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	recomputes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greentrack_recompute_total",
		Help: "Program recompute passes by trigger and status.",
	}, []string{"trigger", "status"})

	recomputeTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greentrack_recompute_duration_seconds",
		Help:    "Program recompute latency including lock wait.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})

	factorLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greentrack_factor_lookups_total",
		Help: "Emission factor resolutions by category and source.",
	}, []string{"category", "source"})

	factorLookupTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "greentrack_factor_lookup_duration_seconds",
		Help:    "Remote emission factor lookup latency.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
	})

	activities := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greentrack_activities_total",
		Help: "Activity mutations by operation and category.",
	}, []string{"operation", "category"})

	co2Saved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greentrack_co2_saved_kg_total",
		Help: "CO2 savings recorded through reduction activities.",
	}, []string{"category"})

	forecasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "greentrack_forecasts_total",
		Help: "Forecast requests by result status.",
	}, []string{"status"})

	registerer.MustRegister(
		apiRequests,
		apiDuration,
		recomputes,
		recomputeTime,
		factorLookups,
		factorLookupTime,
		activities,
		co2Saved,
		forecasts,
	)

	return &Metrics{
		apiRequests:      apiRequests,
		apiDuration:      apiDuration,
		recomputes:       recomputes,
		recomputeTime:    recomputeTime,
		factorLookups:    factorLookups,
		factorLookupTime: factorLookupTime,
		activities:       activities,
		co2Saved:         co2Saved,
		forecasts:        forecasts,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, status).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// ObserveRecompute records a recompute pass.
func (m *Metrics) ObserveRecompute(trigger string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	triggerLabel := sanitizeLabel(trigger)
	m.recomputes.WithLabelValues(triggerLabel, status).Inc()
	m.recomputeTime.WithLabelValues(triggerLabel).Observe(duration.Seconds())
}

// ObserveFactorLookup counts a resolved factor by the source that served it.
func (m *Metrics) ObserveFactorLookup(category, source string) {
	if m == nil {
		return
	}
	m.factorLookups.WithLabelValues(sanitizeLabel(category), sanitizeLabel(source)).Inc()
}

// ObserveFactorLatency records a remote provider roundtrip.
func (m *Metrics) ObserveFactorLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.factorLookupTime.Observe(duration.Seconds())
}

// ObserveActivity counts an activity mutation; saved is only added for creates.
func (m *Metrics) ObserveActivity(operation, category string, saved float64) {
	if m == nil {
		return
	}
	categoryLabel := sanitizeLabel(category)
	m.activities.WithLabelValues(sanitizeLabel(operation), categoryLabel).Inc()
	if saved > 0 {
		m.co2Saved.WithLabelValues(categoryLabel).Add(saved)
	}
}

// ObserveForecast counts a forecast by result status.
func (m *Metrics) ObserveForecast(status string) {
	if m == nil {
		return
	}
	m.forecasts.WithLabelValues(sanitizeLabel(status)).Inc()
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
