package tracing

import (
	"context"
	"testing"
)

func TestInitAndStartSpan(t *testing.T) {
	ctx := context.Background()
	if err := Init(ctx, "tgbridge-test", Config{}); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	// Second init is a no-op.
	if err := Init(ctx, "other", Config{}); err != nil {
		t.Fatalf("repeated Init() error: %v", err)
	}

	spanCtx, span := StartSpan(ctx, "test", "dispatch")
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
	if !span.SpanContext().IsValid() {
		t.Error("span context should be valid after Init")
	}
	span.End()

	if spanCtx == ctx {
		t.Error("StartSpan should derive a new context")
	}

	if err := Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
