// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	"storeops/pkg/logger"
)

// Recovery turns a panic into the same 500 body ErrorHandler renders.
// ErrorHandler never sees the panic: its deferred part is skipped while the
// stack unwinds, so the response is written here.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				"panic", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			status, body := renderError(c, apperror.NewInternal(fmt.Errorf("panic: %v", r)))
			failIdempotency(c, status, body)
			c.AbortWithStatusJSON(status, body)
		}()
		c.Next()
	}
}
