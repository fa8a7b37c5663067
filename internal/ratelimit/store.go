package ratelimit

import "context"

// CounterStore is the durable backing for window counters. Implementations
// must be safe for concurrent use.
type CounterStore interface {
	// Increment adds one to the counter for (identity, bucket) and returns
	// the new count.
	Increment(ctx context.Context, identity string, bucket int64) (int64, error)

	// EvictBefore removes all counters for buckets strictly older than the
	// given bucket.
	EvictBefore(ctx context.Context, bucket int64) error
}
