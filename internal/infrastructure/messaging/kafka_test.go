package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"storeops/internal/core/id"
	"storeops/internal/infrastructure/storage/postgres"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func outboxMessage() *postgres.OutboxMessage {
	return &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: "order",
		AggregateID:   id.New(),
		EventType:     "order.confirmed",
		Payload:       []byte(`{"number":"ORD-2026-00001"}`),
		CreatedAt:     time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOutboxHandler_Publishes(t *testing.T) {
	w := &fakeWriter{}
	h := NewOutboxHandler(w)
	msg := outboxMessage()

	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, w.msgs, 1)

	km := w.msgs[0]
	assert.Equal(t, msg.AggregateID.String(), string(km.Key))
	assert.Equal(t, "order.confirmed", header(km, "event_type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(km.Value, &env))
	assert.Equal(t, msg.ID.String(), env.ID)
	assert.Equal(t, "order", env.AggregateType)
	assert.JSONEq(t, `{"number":"ORD-2026-00001"}`, string(env.Payload))
}

func TestOutboxHandler_ContinuesStoredTrace(t *testing.T) {
	w := &fakeWriter{}
	h := NewOutboxHandler(w)
	msg := outboxMessage()
	tp := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	msg.TraceParent = &tp

	require.NoError(t, h.Handle(context.Background(), msg))

	// the global tracer is a no-op, so the stored span context passes through
	got := header(w.msgs[0], "traceparent")
	require.NotEmpty(t, got)
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	assert.Contains(t, got, traceID.String())
}

func TestOutboxHandler_WriteError(t *testing.T) {
	h := NewOutboxHandler(&fakeWriter{err: errors.New("leader not available")})

	err := h.Handle(context.Background(), outboxMessage())
	assert.ErrorContains(t, err, "leader not available")
}
