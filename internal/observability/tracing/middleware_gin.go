package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/greentrack/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrProgramID  = attribute.Key("greentrack.program_id")
	AttrActivityID = attribute.Key("greentrack.activity_id")
)

// resourceRoutes maps route prefixes to the attribute their :id names.
var resourceRoutes = []struct {
	prefix string
	key    attribute.Key
}{
	{prefix: "/v1/activities/", key: AttrActivityID},
	{prefix: "/v1/programs/", key: AttrProgramID},
}

// GinMiddleware opens a server span per request, named after the route
// template and tagged with the activity or program the request touched.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("greentrack/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(routeResource(c, route)...),
		)
		ctx = withRequestID(ctx, span)

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		// handlers resolve the owning program of an activity only after parsing
		if programID := strings.TrimSpace(c.GetString(obscontext.GinProgramIDKey)); programID != "" {
			attrs = append(attrs, AttrProgramID.String(programID))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

func routeResource(c *gin.Context, route string) []attribute.KeyValue {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return nil
	}
	for _, r := range resourceRoutes {
		if strings.HasPrefix(route, r.prefix) {
			return []attribute.KeyValue{r.key.String(id)}
		}
	}
	return nil
}

// withRequestID propagates the request id as baggage for downstream calls.
func withRequestID(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
