// Package retry calls external services with a per-attempt timeout and
// bounded exponential backoff on rate-limit responses.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrRateLimited marks a response the caller may retry.
var ErrRateLimited = errors.New("rate limited")

type rateLimitError struct {
	err error
}

func (e *rateLimitError) Error() string { return e.err.Error() }

func (e *rateLimitError) Unwrap() []error { return []error{ErrRateLimited, e.err} }

// RateLimited tags err as retryable.
func RateLimited(err error) error {
	if err == nil {
		return nil
	}
	return &rateLimitError{err: err}
}

// ExhaustedError is returned when every attempt was rate limited.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Policy bounds a call.
type Policy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// DefaultPolicy allows three attempts with single-digit-second timeouts.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		Timeout:         8 * time.Second,
	}
}

// Do runs call until it succeeds, fails with a non-rate-limit error, or
// the attempts are used up. Each attempt gets its own timeout.
func Do[T any](ctx context.Context, p Policy, call func(ctx context.Context) (T, error)) (T, error) {
	var (
		result   T
		attempts int
	)
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	op := func() error {
		attempts++
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		v, err := call(attemptCtx)
		if err == nil {
			result = v
			return nil
		}
		if errors.Is(err, ErrRateLimited) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx))
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	var zero T
	if errors.Is(err, ErrRateLimited) {
		return zero, &ExhaustedError{Attempts: attempts, Err: err}
	}
	return zero, err
}
