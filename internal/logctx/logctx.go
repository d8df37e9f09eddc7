// Package logctx carries a request-scoped logger in the context.
//
// The logger is installed once per request with the correlation id attached
// and disappears with the context, so it is cleared on every exit path by
// construction.
package logctx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithRequestID returns a context whose logger carries the request id.
func WithRequestID(ctx context.Context, base *slog.Logger, requestID string) context.Context {
	if base == nil {
		base = slog.Default()
	}
	return context.WithValue(ctx, ctxKey{}, base.With("request_id", requestID))
}

// From returns the request-scoped logger, or the default logger when the
// context carries none.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
