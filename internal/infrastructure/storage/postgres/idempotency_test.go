package postgres

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storeops/internal/core/apperror"
)

func TestIdempotencyDecide(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := IdempotencyRecord{
		UserID:      "u1",
		Key:         "k1",
		Operation:   "POST /api/v1/orders/checkout",
		RequestHash: "h1",
		CreatedAt:   now.Add(-10 * time.Second),
		ExpiresAt:   now.Add(time.Hour),
	}
	with := func(mut func(*IdempotencyRecord)) IdempotencyRecord {
		r := base
		mut(&r)
		return r
	}

	tests := []struct {
		name     string
		rec      IdempotencyRecord
		hash     string
		want     acquireDecision
		wantCode string
	}{
		{
			name: "fresh row is ours",
			rec:  with(func(r *IdempotencyRecord) { r.CreatedAt = now; r.Status = IdempotencyStatusPending }),
			hash: "h1",
			want: decisionOwn,
		},
		{
			name:     "different body",
			rec:      with(func(r *IdempotencyRecord) { r.Status = IdempotencyStatusSuccess }),
			hash:     "h2",
			want:     decisionReject,
			wantCode: apperror.CodeIdempotencyMismatch,
		},
		{
			name: "finished is replayed",
			rec:  with(func(r *IdempotencyRecord) { r.Status = IdempotencyStatusSuccess }),
			hash: "h1",
			want: decisionReplay,
		},
		{
			name:     "in flight",
			rec:      with(func(r *IdempotencyRecord) { r.Status = IdempotencyStatusPending }),
			hash:     "h1",
			want:     decisionReject,
			wantCode: apperror.CodeIdempotencyConflict,
		},
		{
			name: "stale pending is reclaimed",
			rec: with(func(r *IdempotencyRecord) {
				r.Status = IdempotencyStatusPending
				r.CreatedAt = now.Add(-2 * staleAfter)
			}),
			hash: "h1",
			want: decisionReclaim,
		},
		{
			name: "expired is reclaimed",
			rec: with(func(r *IdempotencyRecord) {
				r.Status = IdempotencyStatusFailed
				r.ExpiresAt = now.Add(-time.Second)
			}),
			hash: "h1",
			want: decisionReclaim,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := decide(tt.rec, base.Operation, tt.hash, now)
			assert.Equal(t, tt.want, got)
			if tt.wantCode != "" {
				assert.True(t, apperror.HasCode(err, tt.wantCode), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdempotencyDecide_ReplayDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := IdempotencyRecord{
		Operation: "POST /x",
		Status:    IdempotencyStatusFailed,
		Response:  []byte(`{"code":"VALIDATION_ERROR"}`),
		CreatedAt: now.Add(-time.Second),
		ExpiresAt: now.Add(time.Hour),
	}

	got, replay, err := decide(rec, "POST /x", "", now)

	assert.NoError(t, err)
	assert.Equal(t, decisionReplay, got)
	assert.Equal(t, http.StatusOK, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.Equal(t, rec.Response, replay.Body)
}
