package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	activitiesRecorded metric.Int64Counter
	factorFallbacks    metric.Int64Counter
	recomputeRuns      metric.Int64Counter
	goalTransitions    metric.Int64Counter
	forecastRequests   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "greentrack"
	}
	meter := provider.Meter(name)

	activitiesRecorded, err := meter.Int64Counter("greentrack_activities_recorded_total")
	if err != nil {
		return nil, err
	}
	factorFallbacks, err := meter.Int64Counter("greentrack_factor_fallback_total")
	if err != nil {
		return nil, err
	}
	recomputeRuns, err := meter.Int64Counter("greentrack_recompute_runs_total")
	if err != nil {
		return nil, err
	}
	goalTransitions, err := meter.Int64Counter("greentrack_goal_transitions_total")
	if err != nil {
		return nil, err
	}
	forecastRequests, err := meter.Int64Counter("greentrack_forecast_requests_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		activitiesRecorded: activitiesRecorded,
		factorFallbacks:    factorFallbacks,
		recomputeRuns:      recomputeRuns,
		goalTransitions:    goalTransitions,
		forecastRequests:   forecastRequests,
	}, nil
}

// RecordActivity increments recorded activity counts.
func (m *Metrics) RecordActivity(ctx context.Context, category, intent string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.String("intent", strings.TrimSpace(intent)),
	)
	m.activitiesRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFactorFallback counts lookups served by the static table.
func (m *Metrics) RecordFactorFallback(ctx context.Context, category, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("category", strings.TrimSpace(category)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.factorFallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRecompute counts aggregation passes.
func (m *Metrics) RecordRecompute(ctx context.Context, trigger, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("trigger", strings.TrimSpace(trigger)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.recomputeRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGoalTransition counts derived goal state changes.
func (m *Metrics) RecordGoalTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_state", strings.TrimSpace(from)),
		attribute.String("state", strings.TrimSpace(to)),
	)
	m.goalTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordForecast counts forecast requests by outcome.
func (m *Metrics) RecordForecast(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.forecastRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"category":    {},
	"intent":      {},
	"reason":      {},
	"trigger":     {},
	"status":      {},
	"state":       {},
	"from_state":  {},
	"source":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
