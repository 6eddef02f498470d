package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps the last snapshot in memory. It backs tests and
// sessions that should not outlive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	saves   int
	err     error
}

// NewMemoryStore creates a store preloaded with records.
func NewMemoryStore(records ...Record) *MemoryStore {
	return &MemoryStore{records: append([]Record(nil), records...)}
}

// Load returns a copy of the stored snapshot.
func (s *MemoryStore) Load(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...), nil
}

// Save replaces the stored snapshot.
func (s *MemoryStore) Save(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append([]Record(nil), records...)
	s.saves++
	return nil
}

// Saves returns how many snapshots were written.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailWith makes later saves return err. A nil err restores normal saving.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

var _ Store = (*MemoryStore)(nil)
