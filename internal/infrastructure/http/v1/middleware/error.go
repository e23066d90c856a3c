package middleware

import (
	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	"storeops/pkg/logger"
)

// ErrorHandler renders the last handler error as {code, message, details}
// and records it against the idempotency key of the request.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		status, body := renderError(c, c.Errors.Last().Err)
		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

// renderError maps err to a status and body. Causes of internal errors are
// logged and never sent to the client.
func renderError(c *gin.Context, err error) (int, gin.H) {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		appErr = apperror.NewInternal(err)
	}

	if appErr.Code == apperror.CodeInternal {
		logger.Error(c.Request.Context(), "internal error",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"error", err,
		)
		return appErr.HTTPStatus, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{"request_id": c.GetString("request_id")},
		}
	}

	if appErr.Err != nil {
		logger.Warn(c.Request.Context(), "request failed",
			"code", appErr.Code,
			"cause", appErr.Err,
		)
	}
	return appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	}
}
