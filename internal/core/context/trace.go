package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one request in logs and responses. Once an
// OpenTelemetry span is started its ids replace TraceID and SpanID.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// NewTraceContext keeps the ids supplied by the caller and generates the
// missing ones.
func NewTraceContext(requestID, traceID string) *TraceContext {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns nil outside of an HTTP request.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}
