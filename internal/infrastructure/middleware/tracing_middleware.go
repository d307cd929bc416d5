package middleware

import (
	"net/http"

	"tasktracker/pkg/logger"
	"tasktracker/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	requestIDAttr = attribute.Key("tracker.request_id")
	userIDAttr    = attribute.Key("tracker.user_id")
)

// TracingMiddleware opens one server span per status request. It must run
// after RequestIDMiddleware and the user tagging so the span carries both
// ids. Handler errors are recorded on the span; only 5xx marks it failed.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()

		if id := logger.RequestID(ctx); id != "" {
			span.SetAttributes(requestIDAttr.String(id))
		}
		if id := logger.UserID(ctx); id != "" {
			span.SetAttributes(userIDAttr.String(id))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(tracing.HTTPStatusKey.Int(status))
		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
