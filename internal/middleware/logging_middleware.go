package middleware

import (
	"strings"
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDKey is the gin context key holding the request trace id.
const TraceIDKey = "trace_id"

// RequestLogger tags every request with a trace id and logs its start and
// completion. The id comes from the active OpenTelemetry span when there
// is one.
type RequestLogger struct {
	log  *logging.Logger
	skip []string
}

// NewRequestLogger logs to log; requests whose path starts with one of
// skipPrefixes are tagged but not logged.
func NewRequestLogger(log *logging.Logger, skipPrefixes ...string) *RequestLogger {
	return &RequestLogger{log: log, skip: skipPrefixes}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)

		if rl.skipped(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rl.log.Debug("[HTTP] > %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			rl.log.Error("[HTTP] < %s %s %d %s trace=%s err=%s", method, path, status, latency, traceID, c.Errors.String())
		case status >= 400:
			rl.log.Warn("[HTTP] < %s %s %d %s trace=%s", method, path, status, latency, traceID)
		default:
			rl.log.Info("[HTTP] < %s %s %d %s trace=%s", method, path, status, latency, traceID)
		}
	}
}

func (rl *RequestLogger) skipped(path string) bool {
	for _, p := range rl.skip {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
