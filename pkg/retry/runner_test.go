package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunnerSuccessFirstAttempt(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	calls := 0
	err := runner.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRunnerRetryOnFailure(t *testing.T) {
	config := Config{
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	runner := NewRunner(config)

	calls := 0
	start := time.Now()
	err := runner.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	// Should have taken at least the first two backoff delays
	minExpected := 10*time.Millisecond + 20*time.Millisecond
	if elapsed < minExpected {
		t.Errorf("expected at least %v for retries, got %v", minExpected, elapsed)
	}
}

func TestRunnerRecoversAfterFailures(t *testing.T) {
	config := Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	runner := NewRunner(config)

	calls := 0
	err := runner.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got: %v", err)
	}
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	config := Config{
		MaxAttempts:   10,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
	runner := NewRunner(config)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := runner.Do(ctx, func(ctx context.Context) error {
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
