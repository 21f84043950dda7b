package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAttachesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := context.WithValue(context.Background(), RequestIDKey{}, "req-123")
	WithContext(ctx, base).Info("request completed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-123" {
		t.Fatalf("expected request_id %q, got %v", "req-123", got)
	}
}

func TestWithContextWithoutRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithContext(context.Background(), zap.New(core)).Info("request completed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["request_id"]; ok {
		t.Fatalf("expected no request_id field without one on the context")
	}
}

func TestMaskingHelpers(t *testing.T) {
	if got := MaskEmail("john.doe@example.com"); got != "joh***@example.com" {
		t.Fatalf("MaskEmail = %q", got)
	}
	if got := MaskPhone("+12345678901"); got != "+123***8901" {
		t.Fatalf("MaskPhone = %q", got)
	}
	if got := MaskIP("192.168.10.42"); got != "192.168.*.*" {
		t.Fatalf("MaskIP = %q", got)
	}
}
