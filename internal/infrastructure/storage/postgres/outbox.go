package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/propagation"

	"storeops/internal/core/clock"
	"storeops/internal/core/id"
	"storeops/internal/domain/events"
	"storeops/pkg/logger"
)

// OutboxStatus is the delivery state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is one row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	TraceParent   *string      `db:"trace_parent"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher implements events.Publisher on sys_outbox.
type OutboxPublisher struct {
	txManager *TxManager
	now       clock.Func
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates an outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager, now: clock.System}
}

// Publish inserts the event in the caller's transaction, so it is relayed
// only if the state change it describes commits.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	t := p.txManager.GetTx(ctx)
	if t == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	var traceParent *string
	if tp := traceParentOf(ctx); tp != "" {
		traceParent = &tp
	}

	_, err = t.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, trace_parent, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id.New(), event.AggregateType, event.AggregateID, event.Type, payload, traceParent, OutboxStatusPending, p.now())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler delivers one message to the broker.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// RelayConfig tunes the relay.
type RelayConfig struct {
	BatchSize  int
	MaxRetries int
	// Lease is how long a claimed batch is hidden from other relays.
	Lease time.Duration
	// Retention is how long published messages are kept.
	Retention time.Duration
}

// DefaultRelayConfig returns the defaults used by the worker.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:  100,
		MaxRetries: 5,
		Lease:      time.Minute,
		Retention:  7 * 24 * time.Hour,
	}
}

// OutboxRelay moves pending messages to the broker.
type OutboxRelay struct {
	txManager *TxManager
	handler   OutboxHandler
	cfg       RelayConfig
	now       clock.Func
}

// NewOutboxRelay creates a relay.
func NewOutboxRelay(txManager *TxManager, handler OutboxHandler, cfg RelayConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRelayConfig().MaxRetries
	}
	if cfg.Lease <= 0 {
		cfg.Lease = DefaultRelayConfig().Lease
	}
	return &OutboxRelay{txManager: txManager, handler: handler, cfg: cfg, now: clock.System}
}

// ProcessBatch claims due messages and hands them to the handler. It
// returns the number delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := r.claim(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, msg := range messages {
		if err := r.deliver(ctx, msg); err != nil {
			logger.Warn(ctx, "outbox delivery failed",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"retry_count", msg.RetryCount,
				"error", err,
			)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// claim pushes next_retry_at of a batch past the lease, so concurrent
// relays skip it while this one delivers.
func (r *OutboxRelay) claim(ctx context.Context) ([]*OutboxMessage, error) {
	now := r.now()
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, `
		UPDATE sys_outbox o
		SET next_retry_at = $1
		FROM (
			SELECT id FROM sys_outbox
			WHERE status = $2 AND (next_retry_at IS NULL OR next_retry_at <= $3)
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		) due
		WHERE o.id = due.id
		RETURNING o.id, o.aggregate_type, o.aggregate_id, o.event_type, o.payload, o.trace_parent,
		          o.status, o.retry_count, o.last_error, o.next_retry_at, o.created_at, o.published_at
	`, now.Add(r.cfg.Lease), OutboxStatusPending, now, r.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("claim outbox messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[OutboxMessage])
	if err != nil {
		return nil, fmt.Errorf("scan outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) error {
	q := r.txManager.GetQuerier(ctx)

	if err := r.handler.Handle(ctx, msg); err != nil {
		attempt := msg.RetryCount + 1
		status := OutboxStatusPending
		if attempt >= r.cfg.MaxRetries {
			status = OutboxStatusFailed
		}
		_, updErr := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = $1, last_error = $2, next_retry_at = $3, status = $4
			WHERE id = $5
		`, attempt, err.Error(), r.now().Add(RetryDelay(attempt)), status, msg.ID)
		if updErr != nil {
			return fmt.Errorf("record delivery failure: %w", updErr)
		}
		return err
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3
	`, OutboxStatusPublished, r.now(), msg.ID)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// RetryDelay is the wait before delivery attempt n+1: exponential from
// 30 seconds, capped at 30 minutes, with jitter.
func RetryDelay(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     30 * time.Second,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         30 * time.Minute,
	}
	b.Reset()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// MoveToDLQ moves messages that exhausted their retries to sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox WHERE status = $1
			RETURNING id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at
		)
		INSERT INTO sys_outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, retry_count, failure_reason, created_at, failed_at)
		SELECT id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at, $2
		FROM moved
	`, OutboxStatusFailed, r.now())
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CleanupPublished deletes published messages older than the retention.
func (r *OutboxRelay) CleanupPublished(ctx context.Context) (int64, error) {
	if r.cfg.Retention <= 0 {
		return 0, nil
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, r.now().Add(-r.cfg.Retention))
	if err != nil {
		return 0, fmt.Errorf("cleanup outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}

// traceParentOf renders the W3C traceparent of the span in ctx, so the
// consumer can continue the trace that produced the event.
func traceParentOf(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}
