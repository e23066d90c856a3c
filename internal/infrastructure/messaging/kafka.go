// Package messaging relays outbox messages to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"storeops/internal/infrastructure/storage/postgres"
)

const tracerName = "storeops/messaging"

// Writer is the part of *kafka.Writer the handler uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// WriterConfig configures NewWriter.
type WriterConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// NewWriter creates a Kafka writer that waits for all in-sync replicas.
func NewWriter(cfg WriterConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		BatchSize:              100,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
}

// Envelope is the value of every published message.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// OutboxHandler publishes outbox messages, keyed by aggregate id so events
// of one order stay in one partition and keep their order.
type OutboxHandler struct {
	writer     Writer
	propagator propagation.TextMapPropagator
	tracer     trace.Tracer
}

var _ postgres.OutboxHandler = (*OutboxHandler)(nil)

// NewOutboxHandler creates a handler over writer.
func NewOutboxHandler(writer Writer) *OutboxHandler {
	return &OutboxHandler{
		writer:     writer,
		propagator: propagation.TraceContext{},
		tracer:     otel.Tracer(tracerName),
	}
}

// Handle publishes one message. The span continues the trace of the request
// that wrote the event.
func (h *OutboxHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	if msg.TraceParent != nil {
		ctx = h.propagator.Extract(ctx, propagation.MapCarrier{"traceparent": *msg.TraceParent})
	}
	ctx, span := h.tracer.Start(ctx, "outbox publish "+msg.EventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.message.id", msg.ID.String()),
			attribute.String("storeops.event_type", msg.EventType),
			attribute.Int("storeops.retry_count", msg.RetryCount),
		),
	)
	defer span.End()

	km, err := h.message(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return err
	}
	if err := h.writer.WriteMessages(ctx, km); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (h *OutboxHandler) message(ctx context.Context, msg *postgres.OutboxMessage) (kafka.Message, error) {
	value, err := json.Marshal(Envelope{
		ID:            msg.ID.String(),
		Type:          msg.EventType,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID.String(),
		OccurredAt:    msg.CreatedAt,
		Payload:       json.RawMessage(msg.Payload),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal envelope: %w", err)
	}

	carrier := propagation.MapCarrier{}
	h.propagator.Inject(ctx, carrier)

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(msg.EventType)},
		{Key: "message_id", Value: []byte(msg.ID.String())},
	}
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}

	return kafka.Message{
		Key:     []byte(msg.AggregateID.String()),
		Value:   value,
		Headers: headers,
		Time:    msg.CreatedAt,
	}, nil
}
