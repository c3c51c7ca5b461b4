package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carelane/carelane/internal/platform/metrics"
)

// Metrics returns middleware that records request counts, latencies, and the
// in-flight gauge against the shared collector. The scrape endpoint is
// excluded so the collector does not observe its own traffic.
func Metrics(collector *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}

			collector.InFlightGauge.Inc()
			start := time.Now()

			err := next(c)

			collector.InFlightGauge.Dec()

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			// Use the route template so path labels stay low-cardinality.
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			method := c.Request().Method
			code := strconv.Itoa(status)
			collector.RequestsTotal.WithLabelValues(method, path, code).Inc()
			collector.RequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
