package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
)

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger in ctx. Without one it returns a shared
// warn-level stderr logger, so errors from code that lost its request
// context still surface.
func FromContext(ctx context.Context) Logger {
	return FromContextOr(ctx, nil)
}

// FromContextOr returns the logger in ctx, or fallback when ctx carries
// none. A nil fallback means the shared stderr logger.
func FromContextOr(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return stderrLogger()
}

// WithFields stores a child of ctx's logger (or fallback) that carries
// fields, so everything logged below ctx is tagged with them.
func WithFields(ctx context.Context, fallback Logger, fields ...Field) context.Context {
	return WithContext(ctx, FromContextOr(ctx, fallback).With(fields...))
}

var stderrLogger = sync.OnceValue(func() Logger {
	l, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to create fallback logger: %v\n", err)
		return NewNop()
	}
	return l
})
