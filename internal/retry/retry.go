// Package retry retries filesystem operations that fail with transient errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 50 * time.Millisecond
	defaultMaxDelay     = 1 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 50ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 1s)
}

// Do executes fn until it succeeds, returns a non-retryable error or attempts run out.
// Context cancellation is checked between attempts.
func Do(ctx context.Context, fn func() error, cfg Config) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// IsRetryable reports whether err looks like a transient "file in use" condition.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETXTBSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR) {
		return true
	}

	errLower := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"resource busy",
		"device or resource busy",
		"text file busy",
		"temporarily unavailable",
		"interrupted system call",
		"being used by another process",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}

// calculateBackoff calculates the backoff duration for a given attempt.
// Uses exponential backoff: 2^attempt * initial, capped at max.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max {
		return max
	}
	return backoff
}
