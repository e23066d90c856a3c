package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storeops/internal/core/apperror"
	"storeops/internal/core/clock"
)

// IdempotencyStatus is the state of a key.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// DefaultIdempotencyTTL is how long finished keys are replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// staleAfter is how long a pending key may stay unfinished before a retry
// may take it over, e.g. after the process died mid-checkout.
const staleAfter = time.Minute

// IdempotencyKey is a client supplied key scoped to the caller. Two users
// sending the same key never see each other's responses.
type IdempotencyKey struct {
	UserID string
	Key    string
}

// IdempotencyRecord is a row of sys_idempotency.
type IdempotencyRecord struct {
	UserID      string            `db:"user_id"`
	Key         string            `db:"idempotency_key"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is a stored response to send again.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore keeps X-Idempotency-Key records so a retried checkout or
// return request never runs twice.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       clock.Func
}

// NewIdempotencyStore creates a store. A non-positive ttl selects
// DefaultIdempotencyTTL.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl, now: clock.System}
}

// AcquireKey claims k for one request. It returns (nil, nil) when the caller
// owns the key and must run the operation, a replay when the operation
// already finished, or an error when the key is in flight or was used for a
// different request.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, k IdempotencyKey, operation, requestHash string) (*IdempotencyReplay, error) {
	// timestamptz keeps microseconds; decide compares against the stored value
	now := s.now().Truncate(time.Microsecond)

	var rec IdempotencyRecord
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (user_id, idempotency_key, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (user_id, idempotency_key) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING user_id, idempotency_key, operation, status, request_hash, response,
		          response_status, response_content_type, created_at, updated_at, expires_at
	`, k.UserID, k.Key, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&rec.UserID, &rec.Key, &rec.Operation, &rec.Status, &rec.RequestHash, &rec.Response,
		&rec.StatusCode, &rec.ContentType, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	switch decision, replay, err := decide(rec, operation, requestHash, now); decision {
	case decisionOwn:
		return nil, nil
	case decisionReplay:
		return replay, nil
	case decisionReclaim:
		return nil, s.reclaim(ctx, k, now)
	default:
		return nil, err
	}
}

type acquireDecision int

const (
	decisionOwn acquireDecision = iota
	decisionReplay
	decisionReclaim
	decisionReject
)

// decide inspects the row returned by the acquiring upsert. A row created
// by this very upsert carries created_at == now.
func decide(rec IdempotencyRecord, operation, requestHash string, now time.Time) (acquireDecision, *IdempotencyReplay, error) {
	if rec.CreatedAt.Equal(now) {
		return decisionOwn, nil, nil
	}
	if rec.Operation != operation || rec.RequestHash != requestHash {
		return decisionReject, nil, apperror.NewIdempotencyMismatch(rec.Key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}
	if !rec.ExpiresAt.After(now) {
		// expired but not swept yet
		return decisionReclaim, nil, nil
	}

	switch rec.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		replay := &IdempotencyReplay{
			StatusCode:  rec.StatusCode,
			ContentType: rec.ContentType,
			Body:        rec.Response,
		}
		if replay.StatusCode == 0 {
			replay.StatusCode = http.StatusOK
		}
		if replay.ContentType == "" {
			replay.ContentType = "application/json"
		}
		return decisionReplay, replay, nil
	default:
		if now.Sub(rec.CreatedAt) > staleAfter {
			return decisionReclaim, nil, nil
		}
		return decisionReject, nil, apperror.NewIdempotencyConflict(rec.Key)
	}
}

func (s *IdempotencyStore) reclaim(ctx context.Context, k IdempotencyKey, now time.Time) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = NULL, response_status = 0, response_content_type = '',
		    created_at = $2, updated_at = $2, expires_at = $3
		WHERE user_id = $4 AND idempotency_key = $5
	`, IdempotencyStatusPending, now, now.Add(s.ttl), k.UserID, k.Key)
	if err != nil {
		return fmt.Errorf("reclaim idempotency key: %w", err)
	}
	return nil
}

// CompleteKey stores the successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, k IdempotencyKey, statusCode int, contentType string, response any) error {
	return s.finish(ctx, k, IdempotencyStatusSuccess, statusCode, contentType, response)
}

// FailKey stores a client error for replay. Server errors release the key
// instead, so the client may retry the same request once the fault clears.
func (s *IdempotencyStore) FailKey(ctx context.Context, k IdempotencyKey, statusCode int, contentType string, response any) error {
	if statusCode >= http.StatusInternalServerError {
		_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
			DELETE FROM sys_idempotency WHERE user_id = $1 AND idempotency_key = $2
		`, k.UserID, k.Key)
		if err != nil {
			return fmt.Errorf("release idempotency key: %w", err)
		}
		return nil
	}
	return s.finish(ctx, k, IdempotencyStatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, k IdempotencyKey, status IdempotencyStatus, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5
		WHERE user_id = $6 AND idempotency_key = $7
	`, status, body, statusCode, contentType, s.now(), k.UserID, k.Key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired deletes keys past their expiry.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
