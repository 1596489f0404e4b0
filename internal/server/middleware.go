package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/greentrack/internal/observability/context"
	"github.com/smallbiznis/greentrack/pkg/telemetry"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// APIMetrics records request counts and latency per route template.
func APIMetrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.ObserveAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func setProgramID(c *gin.Context, id string) {
	if id = strings.TrimSpace(id); id != "" {
		c.Set(obscontext.GinProgramIDKey, id)
	}
}
