package metrics

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and local
// development. The single critical section around the map gives the same
// one-complete-writer guarantee as the database upsert.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Snapshot
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Snapshot)}
}

// Upsert inserts or overwrites the row for the snapshot's key.
func (s *MemoryStore) Upsert(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot.WeekStart = Date(snapshot.WeekStart)
	snapshot.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[snapshot.Key().String()] = snapshot
	return nil
}

// Get returns the snapshot for a key, or ErrSnapshotNotFound.
func (s *MemoryStore) Get(ctx context.Context, key Key) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.rows[key.String()]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

// Len reports the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

var _ Store = (*MemoryStore)(nil)
