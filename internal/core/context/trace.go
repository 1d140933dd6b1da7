package context

import (
	"context"

	"ledgercore/internal/core/id"
)

// TraceContext carries correlation ids for a single request or job run.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// NewTraceContext creates a TraceContext, reusing incoming ids when present.
func NewTraceContext(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = id.New().String()
	}
	if requestID == "" {
		requestID = id.New().String()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}
