// Package retry provides a shared retry utility with exponential backoff and jitter.
package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"
)

// cryptoFloat64 returns a random float64 in [0, 1) using crypto/rand.
func cryptoFloat64() float64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	v := binary.LittleEndian.Uint64(b[:]) >> 11 // 53 random bits
	return float64(v) / (1 << 53)
}

// PermanentError wraps an error that should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do will not retry it.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Backoff computes exponential delays with uniform jitter. The zero value is
// not usable; construct with NewBackoff.
type Backoff struct {
	base   time.Duration
	random func() float64 // uniform [0, 1)
}

// NewBackoff creates a backoff schedule starting at base and doubling per
// attempt, with each delay perturbed by +-12.5% to avoid synchronized retry
// storms across concurrent callers.
func NewBackoff(base time.Duration) Backoff {
	return Backoff{base: base, random: cryptoFloat64}
}

// WithRandom replaces the jitter source. Used in tests for determinism.
func (b Backoff) WithRandom(random func() float64) Backoff {
	b.random = random
	return b
}

// Delay returns the sleep before retrying after the given zero-based attempt:
// base * 2^attempt scaled by a factor drawn uniformly from [0.875, 1.125].
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.base << uint(attempt)
	factor := 0.875 + 0.25*b.random()
	return time.Duration(float64(d) * factor)
}

// Do calls fn up to maxAttempts times, sleeping per the backoff schedule
// between attempts. It stops early if:
//   - fn returns nil (success)
//   - fn returns a *PermanentError (not retryable)
//   - ctx is cancelled
//
// The last error is returned when all attempts fail; it is never swallowed.
func Do(ctx context.Context, maxAttempts int, backoff Backoff, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't retry permanent errors.
		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}

		// Don't sleep after the last attempt.
		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff.Delay(attempt)):
		}
	}

	return err
}
