// Package context carries request-scoped correlation data for logging.
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext correlates the log lines of one ingestion run or load.
type TraceContext struct {
	TraceID   string
	Operation string
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

// NewTraceContext creates a new TraceContext for the named operation.
func NewTraceContext(operation string) *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		Operation: operation,
	}
}

// StartOperation returns ctx with a fresh trace unless one is already present.
func StartOperation(ctx context.Context, operation string) context.Context {
	if GetTrace(ctx) != nil {
		return ctx
	}
	return WithTrace(ctx, NewTraceContext(operation))
}
