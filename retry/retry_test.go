package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	result, err := WithRetry(context.Background(), fastConfig(),
		func(error) bool { return true },
		func() (string, error) {
			attempts++
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || attempts != 1 {
		t.Errorf("result=%q attempts=%d", result, attempts)
	}
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	attempts := 0
	result, err := WithRetry(context.Background(), fastConfig(),
		func(err error) bool { return errors.Is(err, errTransient) },
		func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errTransient
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 || attempts != 3 {
		t.Errorf("result=%d attempts=%d", result, attempts)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), fastConfig(),
		func(err error) bool { return errors.Is(err, errTransient) },
		func() (int, error) {
			attempts++
			return 0, errFatal
		})
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected errFatal, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("non-retryable error must stop after 1 attempt, got %d", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), fastConfig(),
		func(error) bool { return true },
		func() (int, error) {
			attempts++
			return 0, errTransient
		})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected errTransient, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := WithRetry(ctx, fastConfig(),
		func(error) bool { return true },
		func() (int, error) {
			attempts++
			return 0, errTransient
		})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if attempts != 0 {
		t.Errorf("cancelled context must prevent attempts, got %d", attempts)
	}
}

func TestCooldown(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewCooldown(2 * time.Second)
	c.SetClock(func() time.Time { return now })

	if !c.Allow() {
		t.Fatal("fresh cooldown must allow")
	}
	if c.Remaining() != 0 {
		t.Errorf("fresh cooldown remaining = %v", c.Remaining())
	}

	c.Trip()
	if c.Allow() {
		t.Fatal("tripped cooldown must refuse")
	}
	if c.Remaining() != 2*time.Second {
		t.Errorf("remaining = %v, want 2s", c.Remaining())
	}

	now = now.Add(1999 * time.Millisecond)
	if c.Allow() {
		t.Error("cooldown must hold until the window elapses")
	}

	now = now.Add(time.Millisecond)
	if !c.Allow() {
		t.Error("cooldown must open exactly at the window boundary")
	}
	if c.Remaining() != 0 {
		t.Errorf("open cooldown remaining = %v", c.Remaining())
	}
}
