package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	_, err := ulid.Parse(cid)
	require.NoError(t, err)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))

	_, again := EnsureCorrelationID(ctx)
	assert.Equal(t, cid, again)
}

func TestStampMetadataKeepsExistingID(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "from-ctx")

	md := StampMetadata(ctx, map[string]any{"correlation_id": "given"})
	assert.Equal(t, "given", md["correlation_id"])

	md = StampMetadata(ctx, nil)
	assert.Equal(t, "from-ctx", md["correlation_id"])
	assert.NotContains(t, md, "trace_id")
	assert.Contains(t, md, "recorded_at")
}

func TestContextWithRemoteSpan(t *testing.T) {
	ctx := ContextWithRemoteSpan(context.Background(), "4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")
	sc := trace.SpanContextFromContext(ctx)
	require.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())

	md := StampMetadata(ctx, nil)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", md["trace_id"])

	bad := ContextWithRemoteSpan(context.Background(), "zz", "00f067aa0ba902b7")
	assert.False(t, trace.SpanContextFromContext(bad).IsValid())
}
