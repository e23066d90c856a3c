package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "storeops/internal/core/context"
)

func TestWithContext_AddsRequestAndUserFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "u-1", CustomerID: "c-1"})
	ctx = WithLogger(ctx, l)

	Info(ctx, "order created", "order_id", "o-1")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "t-1", fields["trace_id"])
		assert.Equal(t, "r-1", fields["request_id"])
		assert.Equal(t, "u-1", fields["user_id"])
		assert.Equal(t, "c-1", fields["customer_id"])
		assert.Equal(t, "o-1", fields["order_id"])
		assert.NotContains(t, fields, "employee_id")
	}
}

func TestNew_TeesExtraCores(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l, err := New(Config{Level: "info", OutputPaths: []string{"stderr"}, Cores: []zapcore.Core{core}})
	assert.NoError(t, err)

	l.Infow("hello", "k", "v")

	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
}

func TestNew_AddsServiceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l, err := New(Config{
		Service:     "storeops-worker",
		Version:     "1.2.3",
		Level:       "debug",
		OutputPaths: []string{"stderr"},
		Cores:       []zapcore.Core{core},
	})
	assert.NoError(t, err)

	l.WithComponent("outbox").Debugw("relayed", "count", 3)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "storeops-worker", fields["service"])
		assert.Equal(t, "1.2.3", fields["version"])
		assert.Equal(t, "outbox", fields["component"])
	}
}
