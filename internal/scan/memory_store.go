package scan

import (
	"context"
	"sync"
)

// MemoryStore keeps scan records in memory. Used in tests and deployments
// without a database. Records are returned newest first.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// maxMemoryRecords bounds the in-memory audit trail.
const maxMemoryRecords = 10000

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends a scan record.
func (s *MemoryStore) Record(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > maxMemoryRecords {
		s.records = s.records[len(s.records)-maxMemoryRecords:]
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(*Record) bool { return true }, limit), nil
}

// ListByMint returns the most recent records for one mint, newest first.
func (s *MemoryStore) ListByMint(ctx context.Context, mint string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r *Record) bool { return r.Mint == mint }, limit), nil
}

// filter walks records newest-first. Caller holds the lock.
func (s *MemoryStore) filter(keep func(*Record) bool, limit int) []*Record {
	out := make([]*Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out
}
