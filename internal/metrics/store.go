package metrics

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound indicates no snapshot exists for a key.
var ErrSnapshotNotFound = errors.New("metrics: snapshot not found")

// Store persists weekly snapshots keyed by (owner, week start).
//
// Upsert must be atomic per key: under concurrent writers the stored row
// reflects exactly one complete writer's values, never a field-level merge,
// and the key never maps to more than one row. A read-then-branch-then-write
// implementation does not satisfy this contract.
type Store interface {
	Upsert(ctx context.Context, snapshot Snapshot) error
	Get(ctx context.Context, key Key) (*Snapshot, error)
}
