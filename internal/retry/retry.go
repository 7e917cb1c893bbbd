// Package retry runs operations with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"
)

// Policy controls retry behavior.
type Policy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool

	// Retryable decides whether an error is worth another attempt.
	// nil retries everything.
	Retryable func(error) bool

	// OnRetry runs before each sleep with the failed attempt number (1-based).
	OnRetry func(err error, attempt int)

	// sleep is a test seam.
	sleep func(context.Context, time.Duration) error
}

// Option mutates a Policy.
type Option func(*Policy)

// DefaultPolicy mirrors the original defaults: 3 attempts, 1s base delay,
// 60s cap, doubling, jittered.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// APIPolicy is tuned for LLM API calls.
func APIPolicy() Policy {
	p := DefaultPolicy()
	p.MaxDelay = 30 * time.Second
	return p
}

// NetworkPolicy retries only network-shaped failures, more patiently.
func NetworkPolicy() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = 5
	p.BaseDelay = 500 * time.Millisecond
	p.Retryable = IsNetworkError
	return p
}

// MaxAttempts sets the total attempt count, including the first try.
func MaxAttempts(n int) Option { return func(p *Policy) { p.MaxAttempts = n } }

// BaseDelay sets the initial backoff delay.
func BaseDelay(d time.Duration) Option { return func(p *Policy) { p.BaseDelay = d } }

// MaxDelay caps the backoff delay.
func MaxDelay(d time.Duration) Option { return func(p *Policy) { p.MaxDelay = d } }

// WithoutJitter disables delay randomization, for deterministic tests.
func WithoutJitter() Option { return func(p *Policy) { p.Jitter = false } }

// RetryIf sets the retryable-error classifier.
func RetryIf(f func(error) bool) Option { return func(p *Policy) { p.Retryable = f } }

// OnRetry sets a callback invoked after each failed attempt that will be retried.
func OnRetry(f func(err error, attempt int)) Option { return func(p *Policy) { p.OnRetry = f } }

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
func Do(ctx context.Context, p Policy, fn func(context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	for _, opt := range opts {
		opt(&p)
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(err, attempt)
		}
		if err := sleep(ctx, p.delay(attempt)); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}

// delay computes the backoff before the next attempt. With jitter enabled
// the delay is scaled by a random factor in [0.5, 1.5), as the original did.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.ExponentialBase
	}
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsNetworkError reports whether err looks like a transient network failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}
