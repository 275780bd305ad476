// Package logging defines the structured-logging interface used by the
// services, the consumer and the scheduler, and its slog implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.  The variadic args are
// key–value pairs:
//
//	log.Info(ctx, "book borrowed", "book_id", id, "user_id", uid)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
