package logger

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// GenerateRequestID returns a fresh random request id.
func GenerateRequestID() string {
	return uuid.NewString()
}

// requestID picks the caller-supplied id, falling back to a new one.
func requestID(candidates ...string) string {
	for _, id := range candidates {
		if id != "" {
			return id
		}
	}
	return GenerateRequestID()
}

// GinMiddleware tags each HTTP request with a request id and logs its
// completion with status and latency.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestID(c.GetHeader(RequestIDHeader))
		c.Header(RequestIDHeader, id)

		ctx := WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		event := Info(ctx)
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = Warn(ctx)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("ip", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	}
}

// WebSocketContext returns a context for the lifetime of a WebSocket
// connection. It is detached from r so that it survives the upgrade, but
// keeps the request id from the query string or header when present.
func WebSocketContext(r *http.Request) context.Context {
	id := requestID(r.URL.Query().Get("request_id"), r.Header.Get(RequestIDHeader))
	return WithRequestID(context.Background(), id)
}
