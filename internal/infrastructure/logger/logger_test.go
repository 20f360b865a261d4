package logger_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := logger.ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_WritesToStderr(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	child := l.With(logger.String("service", "sentiment"))
	if child == l {
		t.Error("With returned the parent logger, want a new instance")
	}
	child.Warn("usable", logger.Int("segments", 3))
}

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	nop := logger.NewNop()
	ctx := logger.WithContext(context.Background(), nop)

	if got := logger.FromContext(ctx); got != nop {
		t.Errorf("FromContext returned %v, want the stored logger", got)
	}
}

func TestFromContext_FallbackIsSingleton(t *testing.T) {
	t.Parallel()

	a := logger.FromContext(context.Background())
	b := logger.FromContext(context.Background())
	if a == nil {
		t.Fatal("FromContext on empty context returned nil")
	}
	if a != b {
		t.Error("FromContext returned different fallback instances")
	}
	a.Info("filtered at warn level")
}

func TestFromContextOr(t *testing.T) {
	t.Parallel()

	fallback := logger.NewNop()
	if got := logger.FromContextOr(context.Background(), fallback); got != fallback {
		t.Errorf("FromContextOr on empty context returned %v, want the fallback", got)
	}

	stored := logger.NewFromZap(zap.NewNop())
	ctx := logger.WithContext(context.Background(), stored)
	if got := logger.FromContextOr(ctx, fallback); got != stored {
		t.Errorf("FromContextOr returned %v, want the stored logger", got)
	}

	if got := logger.FromContextOr(context.Background(), nil); got != logger.FromContext(context.Background()) {
		t.Error("nil fallback should resolve to the shared stderr logger")
	}
}

func TestWithFields_TagsDescendants(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	base := logger.NewFromZap(zap.New(core))

	ctx := logger.WithFields(context.Background(), base, logger.String("request_id", "r-1"))
	ctx = logger.WithFields(ctx, nil, logger.Int("text_index", 3))
	logger.FromContext(ctx).Info("classified")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r-1" {
		t.Errorf("request_id = %v, want r-1", fields["request_id"])
	}
	if fields["text_index"] != int64(3) {
		t.Errorf("text_index = %v, want 3", fields["text_index"])
	}
}
