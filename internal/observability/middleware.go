package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// unmatchedRoute labels requests no route claimed, so stray paths cannot
// grow the metric label set.
const unmatchedRoute = "unmatched"

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

// RequestLogger logs one line per status request. Successful polls of the
// status surface log at debug.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Debug()
		}
		event.
			Str("route", routeOf(c)).
			Str("raw_path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Int("status", status).
			Dur("took", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msg("status.request")
	}
}

func RequestMetricsMiddleware(device string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(device, c.Request.Method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}
