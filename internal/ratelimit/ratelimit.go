// Package ratelimit gates inbound requests with a fixed-window counter.
//
// Each check increments two counters for (identity, window bucket): an
// in-process map and a durable CounterStore. The decision uses the maximum
// of the two — a deliberately pessimistic merge that stays correct across
// multiple gateway instances without shared memory. Buckets older than two
// window widths are purged on every check to bound state size.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default limits: 60 requests per 60-second window.
const (
	DefaultMax    = 60
	DefaultWindow = time.Minute
)

// Verdict is the outcome of one rate-limit check.
type Verdict struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetEpochSeconds marks the end of the current window (Unix seconds).
	ResetEpochSeconds int64
	// RetryAfterSeconds is how long to wait before retrying. Only meaningful
	// when the request was rejected; always in (0, window].
	RetryAfterSeconds int64
}

type localKey struct {
	identity string
	bucket   int64
}

// Limiter combines an in-process counter with a durable CounterStore.
type Limiter struct {
	mu    sync.Mutex
	local map[localKey]int64

	store  CounterStore
	window time.Duration
	max    int
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMax sets the per-window request cap.
func WithMax(max int) Option {
	return func(l *Limiter) { l.max = max }
}

// WithWindow sets the window width.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) { l.window = window }
}

// WithLogger sets the limiter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter backed by the given durable store.
func New(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{
		local:  make(map[localKey]int64),
		store:  store,
		window: DefaultWindow,
		max:    DefaultMax,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records one request for identity at time now and decides whether it
// is within limits. The durable store is best-effort: if it fails, the
// in-process count alone decides and the error is logged, so a store outage
// degrades precision rather than availability.
func (l *Limiter) Check(ctx context.Context, identity string, now time.Time) Verdict {
	bucket := now.UnixMilli() / l.window.Milliseconds()
	key := localKey{identity: identity, bucket: bucket}

	l.mu.Lock()
	l.local[key]++
	localCount := l.local[key]
	for k := range l.local {
		if k.bucket < bucket-2 {
			delete(l.local, k)
		}
	}
	l.mu.Unlock()

	effective := localCount
	durableCount, err := l.store.Increment(ctx, identity, bucket)
	if err != nil {
		l.logger.Warn("durable rate-limit counter unavailable", "error", err)
	} else if durableCount > effective {
		effective = durableCount
	}

	if err := l.store.EvictBefore(ctx, bucket-2); err != nil {
		l.logger.Warn("rate-limit eviction failed", "error", err)
	}

	remaining := int64(l.max) - effective
	if remaining < 0 {
		remaining = 0
	}

	v := Verdict{
		Allowed:           effective <= int64(l.max),
		Limit:             l.max,
		Remaining:         int(remaining),
		ResetEpochSeconds: (bucket + 1) * l.window.Milliseconds() / 1000,
	}
	if !v.Allowed {
		retryMs := (bucket+1)*l.window.Milliseconds() - now.UnixMilli()
		v.RetryAfterSeconds = (retryMs + 999) / 1000
		if v.RetryAfterSeconds <= 0 {
			v.RetryAfterSeconds = 1
		}
	}
	return v
}
