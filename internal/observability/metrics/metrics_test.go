package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("category", "fuel"),
		attribute.String("activity_id", "456"),
		attribute.String("intent", "reduction"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "category" && attrs[1].Key != "category" {
		t.Fatalf("expected category to be retained")
	}
	if attrs[0].Key != "intent" && attrs[1].Key != "intent" {
		t.Fatalf("expected intent to be retained")
	}
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordActivity(ctx, "electricity", "reduction")
	m.RecordFactorFallback(ctx, "fuel", "timeout")
	m.RecordRecompute(ctx, "activity", "ok")
	m.RecordGoalTransition(ctx, "pending", "achieved")
	m.RecordForecast(ctx, "ok")

	var nilMetrics *Metrics
	nilMetrics.RecordActivity(ctx, "fuel", "emission")
}
