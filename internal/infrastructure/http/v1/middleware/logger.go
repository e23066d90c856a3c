package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	"storeops/pkg/logger"
)

// Logger writes one access log line per request and puts log into the
// request context for the package level logger functions. Health probes
// are logged at debug level.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		kv := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			if appErr, ok := apperror.AsAppError(err); ok {
				kv = append(kv, "error_code", appErr.Code)
			}
			kv = append(kv, "error", err.Error())
		}

		entry := log.WithContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			entry.Errorw("http request", kv...)
		case strings.HasPrefix(route, "/health/"):
			entry.Debugw("http request", kv...)
		default:
			entry.Infow("http request", kv...)
		}
	}
}
