package log

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey string

const invocationIDKey ctxKey = "invocation_id"

// ContextWithInvocationID stores a fresh invocation ID in the context.
func ContextWithInvocationID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, invocationIDKey, uuid.NewString())
}

// InvocationIDFromContext extracts the invocation ID from context if present.
func InvocationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(invocationIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the base logger annotated with the component name and,
// when present, the invocation ID carried by ctx.
func FromContext(ctx context.Context, component string) zerolog.Logger {
	l := WithComponent(component)
	if id := InvocationIDFromContext(ctx); id != "" {
		l = l.With().Str("invocation_id", id).Logger()
	}
	return l
}
