package log

import (
	"context"

	"github.com/rs/zerolog"
)

// WithLogger attaches a logger to the context using zerolog's own carrier,
// so zerolog.Ctx-aware code sees the same logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// Ctx retrieves the logger attached to the context. Without one it falls
// back to the global logger, so connection and request code can log
// unconditionally.
func Ctx(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return L()
}
