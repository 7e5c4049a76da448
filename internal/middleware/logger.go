package middleware

import (
	"strconv"
	"time"

	"cryptourist/internal/log"
	"cryptourist/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Logger пишет журнал запросов и считает их в метриках (m может быть nil).
func Logger(l log.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		kv := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			l.Errorw("http_request", kv...)
		case status >= 400:
			l.Warnw("http_request", kv...)
		default:
			l.Infow("http_request", kv...)
		}

		if m != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(latency.Seconds())
		}
	}
}
