package shared

import (
	"context"

	"github.com/google/uuid"
)

// traceIDKey is the private context key type for trace ids.
type traceIDKey struct{}

// SetTraceID returns a new context carrying a freshly generated trace ID.
// If the context already carries one, it is kept.
func SetTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey{}, uuid.New().String())
}

// GetTraceID returns the trace ID stored in the context, or the empty
// string when none is present.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}
