package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory CounterStore for tests and single-instance
// deployments without a database.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[localKey]int64
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[localKey]int64)}
}

// Increment adds one to the counter and returns the new count.
func (s *MemoryStore) Increment(ctx context.Context, identity string, bucket int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := localKey{identity: identity, bucket: bucket}
	s.counters[key]++
	return s.counters[key], nil
}

// EvictBefore removes counters for buckets older than the given bucket.
func (s *MemoryStore) EvictBefore(ctx context.Context, bucket int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.counters {
		if k.bucket < bucket {
			delete(s.counters, k)
		}
	}
	return nil
}

// Size returns the number of tracked counters. Test helper.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
