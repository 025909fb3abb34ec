package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-booking-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route, keeping raw paths out of label values.
const unmatchedRoute = "unmatched"

// Metrics records request duration and count per route template. Scrapes of excluded paths are not observed.
func Metrics(metricsSvc *service.MetricsService, exclude ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(exclude))
	for _, path := range exclude {
		skip[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(started))
	}
}
