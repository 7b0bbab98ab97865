package middleware

import (
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// TelemetryMiddleware wires Sentry tracing into the request path.
func TelemetryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
	})
}

// RecordError attaches an error to the current Sentry hub, if any.
func RecordError(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		if span := sentry.TransactionFromContext(c.Request.Context()); span != nil {
			span.Status = sentry.SpanStatusInternalError
		}
	}
}
