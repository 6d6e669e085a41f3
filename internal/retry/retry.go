// Package retry runs operations with bounded exponential backoff for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when every attempt failed with a retryable error.
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context is cancelled between attempts.
	ErrContextCancelled = errors.New("context cancelled during retry")
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
	defaultMultiplier   = 2.0
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts includes the initial attempt. 1 disables retrying.
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay   time.Duration
	Multiplier float64
	// IsRetryable decides whether an error is worth another attempt.
	IsRetryable func(error) bool
	// OnRetry, when set, is called before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retryable is implemented by errors that know whether they are transient.
type Retryable interface {
	Retryable() bool
}

var retryablePatterns = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"no such host",
	"temporary failure",
	"network is unreachable",
	"unexpected eof",
}

// DefaultIsRetryable treats network errors and errors that report themselves retryable as transient.
// Context cancellation is never retried.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Do executes fn until it succeeds, returns a non-retryable error, or attempts run out.
func Do(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	config = withDefaults(config)

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := Backoff(config, attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	if config.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}

// Backoff returns the delay after the given 1-based attempt.
func Backoff(config Config, attempt int) time.Duration {
	config = withDefaults(config)
	d := time.Duration(float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
	if d > config.MaxDelay || d <= 0 {
		return config.MaxDelay
	}
	return d
}

func withDefaults(config Config) Config {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaultInitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = defaultMaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = defaultMultiplier
	}
	if config.IsRetryable == nil {
		config.IsRetryable = DefaultIsRetryable
	}
	return config
}
