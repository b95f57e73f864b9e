// Package web provides a small set of context support for the web apps.
package web

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const traceIDKey ctxKey = 1

// SetTraceID stores the trace id in the context.
func SetTraceID(ctx context.Context, traceID uuid.UUID) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id from the context.
func GetTraceID(ctx context.Context) uuid.UUID {
	v, ok := ctx.Value(traceIDKey).(uuid.UUID)
	if !ok {
		return uuid.UUID{}
	}

	return v
}
