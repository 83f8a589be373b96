package repository

import (
	"context"
	"sync"
)

// Default store configuration constants.
const (
	defaultMaxDatasets = 64
)

// MemoryStore implements Store with a mutex-guarded map. Datasets are
// small (one payload per map on a page), so nothing fancier is needed.
type MemoryStore struct {
	mu          sync.RWMutex
	snaps       map[string]Snapshot
	order       []string
	maxDatasets int
}

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxDatasets caps how many datasets the store will hold.
func WithMaxDatasets(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxDatasets = n
		}
	}
}

// NewMemoryStore creates a MemoryStore with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		snaps:       make(map[string]Snapshot),
		maxDatasets: defaultMaxDatasets,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a dataset under an instance id.
func (s *MemoryStore) Put(_ context.Context, id string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snaps[id]; !exists {
		if len(s.snaps) >= s.maxDatasets {
			return ErrStoreFull
		}
		s.order = append(s.order, id)
	}
	s.snaps[id] = snap
	return nil
}

// Get returns the dataset for an instance id.
func (s *MemoryStore) Get(_ context.Context, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// Delete removes the dataset for an instance id.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snaps[id]; !ok {
		return
	}
	delete(s.snaps, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of stored datasets.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}

// IDs returns the stored instance ids in insertion order.
func (s *MemoryStore) IDs(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
