package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"storeops/internal/core/clock"
	"storeops/internal/domain/webhook"
)

// CompressionAlgo names how a stored payload is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// compressThreshold is the payload size from which bodies are stored zstd-compressed.
const compressThreshold = 1024

// WebhookJournal implements webhook.Journal on sys_webhook_events.
type WebhookJournal struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	now       clock.Func
}

var _ webhook.Journal = (*WebhookJournal)(nil)

// NewWebhookJournal creates a journal.
func NewWebhookJournal(txManager *TxManager) (*WebhookJournal, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &WebhookJournal{txManager: txManager, encoder: encoder, decoder: decoder, now: clock.System}, nil
}

// Begin inserts the receipt. A conflicting key means the delivery was seen
// before, or is being applied right now by a concurrent request whose
// transaction holds the row.
func (j *WebhookJournal) Begin(ctx context.Context, r webhook.Receipt) (bool, error) {
	payload, algo := j.encode(r.Payload)
	receivedAt := r.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = j.now()
	}

	tag, err := j.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_webhook_events (provider, event_key, payload, compression_algo, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, event_key) DO NOTHING
	`, r.Provider, r.EventKey, payload, algo, receivedAt)
	if err != nil {
		return false, fmt.Errorf("journal webhook: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Finish stores the outcome of a delivery.
func (j *WebhookJournal) Finish(ctx context.Context, provider webhook.Provider, eventKey string, outcome webhook.Outcome, note string) error {
	_, err := j.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_webhook_events SET outcome = $1, note = $2, processed_at = $3
		WHERE provider = $4 AND event_key = $5
	`, outcome, note, j.now(), provider, eventKey)
	if err != nil {
		return fmt.Errorf("finish webhook: %w", err)
	}
	return nil
}

// Payload returns the stored body of a delivery, decompressed.
func (j *WebhookJournal) Payload(ctx context.Context, provider webhook.Provider, eventKey string) ([]byte, error) {
	var (
		payload []byte
		algo    CompressionAlgo
	)
	err := j.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT payload, compression_algo FROM sys_webhook_events
		WHERE provider = $1 AND event_key = $2
	`, provider, eventKey).Scan(&payload, &algo)
	if err != nil {
		return nil, fmt.Errorf("read webhook payload: %w", err)
	}
	return j.decode(payload, algo)
}

// CleanupOlderThan removes journal rows received before now minus retention.
// Providers stop retrying long before that.
func (j *WebhookJournal) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := j.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_webhook_events WHERE received_at < $1
	`, j.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("cleanup webhook journal: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (j *WebhookJournal) encode(payload []byte) ([]byte, CompressionAlgo) {
	if len(payload) < compressThreshold {
		return payload, CompressionNone
	}
	return j.encoder.EncodeAll(payload, nil), CompressionZstd
}

func (j *WebhookJournal) decode(payload []byte, algo CompressionAlgo) ([]byte, error) {
	if algo != CompressionZstd {
		return payload, nil
	}
	out, err := j.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return out, nil
}
