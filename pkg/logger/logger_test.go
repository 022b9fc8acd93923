package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: " WARN ", want: zapcore.WarnLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "", want: zapcore.InfoLevel},
		{in: "verbose", want: zapcore.InfoLevel},
	}

	for _, test := range tests {
		test := test
		t.Run(test.in, func(t *testing.T) {
			if got := ParseLevel(test.in); got != test.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", test.in, got, test.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := zap.New(core).With(RequestID("req-1"))
	ctx := ToContext(context.Background(), scoped)

	// Act
	From(ctx).Info("hello")

	// Assert
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}

func TestFrom_Fallback(t *testing.T) {
	fallback := zap.NewNop()

	if got := From(context.Background(), fallback); got != fallback {
		t.Error("From() should return the fallback when ctx carries no logger")
	}
	if From(context.Background()) == nil {
		t.Error("From() should return the process logger when no fallback is given")
	}
}

func TestBuild_Prod(t *testing.T) {
	l := build(Config{Env: "prod", Level: "warn", ServiceName: "boardauth"})
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("prod logger at warn should not enable info")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("prod logger at warn should enable error")
	}
}
