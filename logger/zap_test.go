package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Wrap(zap.New(core))

	log.Info("connect attempt failed", map[string]any{"error": "rejected", "chainId": int64(44787)})
	log.Warn("balance fetch failed", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "connect attempt failed" {
		t.Errorf("message = %q", entries[0].Message)
	}
	ctx := entries[0].ContextMap()
	if ctx["error"] != "rejected" {
		t.Errorf("error field = %v", ctx["error"])
	}
	if ctx["chainId"] != int64(44787) {
		t.Errorf("chainId field = %v", ctx["chainId"])
	}
	if len(entries[1].Context) != 0 {
		t.Errorf("nil fields must produce no context, got %v", entries[1].Context)
	}
}

func TestNewZapLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		if l := NewZapLogger(level); l == nil {
			t.Errorf("NewZapLogger(%q) returned nil", level)
		}
	}
}
