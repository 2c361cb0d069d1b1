package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDHeader carries the correlation identifier between the gateway,
// the API, and callers.
const TraceIDHeader = "X-Trace-ID"

const traceIDKey = "trace_id"

// Trace ensures every request has a trace ID, honoring one supplied by an
// upstream hop so gateway and API logs correlate.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(traceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID returns the request's trace ID, or "" outside the Trace
// middleware.
func GetTraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
