package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	// blank ids leave the context untouched
	assert.Equal(t, "req-1", RequestIDFromContext(WithRequestID(ctx, " ")))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestActorFromContext(t *testing.T) {
	typ, id := ActorFromContext(context.Background())
	assert.Empty(t, typ)
	assert.Empty(t, id)

	ctx := WithActor(context.Background(), ActorTypeSystem, "scheduler")
	typ, id = ActorFromContext(ctx)
	assert.Equal(t, ActorTypeSystem, typ)
	assert.Equal(t, "scheduler", id)
}
