// Package logging is the structured, context-aware logger used by the keeper.
// Call sites pass key/value pairs:
//
//	log.Info(ctx, "document persisted", "name", name, "accounts", n)
package logging

import "context"

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given pairs.
	With(args ...any) Logger
}
