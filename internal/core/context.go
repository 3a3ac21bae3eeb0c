package core

import (
	"context"
	"log/slog"
)

type contextKey string

const requestIDKey contextKey = "request-id"

// WithRequestID returns a new context with the request ID attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// Logger returns the default logger annotated with the request ID carried by
// ctx, if any.
func Logger(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
