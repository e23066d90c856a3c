package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storeops/internal/core/apperror"
	appctx "storeops/internal/core/context"
	"storeops/internal/infrastructure/storage/postgres"
	"storeops/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// IdempotencyStore persists idempotency keys and the responses to replay.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key postgres.IdempotencyKey, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key postgres.IdempotencyKey, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key postgres.IdempotencyKey, statusCode int, contentType string, response any) error
}

// Idempotency middleware protects against duplicate requests.
// Used for POST/PUT/PATCH operations that should be idempotent, checkout above all.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		raw := c.GetHeader(HeaderIdempotencyKey)
		if raw == "" {
			c.Next()
			return
		}
		key := postgres.IdempotencyKey{UserID: appctx.GetUserID(c.Request.Context()), Key: raw}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), key, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
				c.Abort()
				return
			}
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			c.Abort()
			return
		}

		if replay != nil {
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		c.Next()
	}
}

// CompleteIdempotency records a successful response for replay. No-op when
// the request carried no idempotency key.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, store, ok := idempotencyOf(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "failed to complete idempotency key", "key", key.Key, "error", err)
	}
}

// failIdempotency records an error response. Best effort: the client
// already gets the error either way.
func failIdempotency(c *gin.Context, statusCode int, response any) {
	key, store, ok := idempotencyOf(c)
	if !ok {
		return
	}
	if err := store.FailKey(c.Request.Context(), key, statusCode, "application/json", response); err != nil {
		logger.Warn(c.Request.Context(), "failed to record idempotency failure", "key", key.Key, "error", err)
	}
}

func idempotencyOf(c *gin.Context) (postgres.IdempotencyKey, IdempotencyStore, bool) {
	v, _ := c.Get(ctxIdempotencyKey)
	key, ok := v.(postgres.IdempotencyKey)
	if !ok {
		return postgres.IdempotencyKey{}, nil, false
	}
	v, _ = c.Get(ctxIdempotencyStore)
	store, ok := v.(IdempotencyStore)
	if !ok || store == nil {
		return postgres.IdempotencyKey{}, nil, false
	}
	return key, store, true
}
