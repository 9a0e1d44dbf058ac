// Package retry provides function execution with retries and exponential backoff
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config controls retry behavior
type Config struct {
	MaxAttempts   int           `json:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
}

// DefaultConfig returns sensible retry defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Runner executes functions with retry logic
type Runner struct {
	config Config
}

// NewRunner creates a new retry-enabled runner
func NewRunner(config Config) *Runner {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.BackoffFactor <= 1.0 {
		config.BackoffFactor = 2.0
	}
	return &Runner{config: config}
}

// Do executes fn with retries on failure
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Wait with exponential backoff
			delay := r.calculateDelay(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				// Continue to retry
			}
		}

		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// calculateDelay computes the delay for the given attempt using exponential backoff
func (r *Runner) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}
