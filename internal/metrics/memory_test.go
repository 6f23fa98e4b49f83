package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	store := NewMemoryStore()
	monday := day(2025, time.June, 16)

	require.NoError(t, store.Upsert(context.Background(), Snapshot{WeekStart: monday, LeadsCount: 1}))
	require.NoError(t, store.Upsert(context.Background(), Snapshot{WeekStart: monday, LeadsCount: 2}))

	snap, err := store.Get(context.Background(), CompanyKey(monday))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.LeadsCount)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), OwnerKey(1, day(2025, time.June, 16)))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMemoryStore_ConcurrentUpsertsKeepOneCompleteRow(t *testing.T) {
	store := NewMemoryStore()
	monday := day(2025, time.June, 16)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		writer := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				_ = store.Upsert(context.Background(), Snapshot{
					OwnerID:    ptrInt64(7),
					WeekStart:  monday,
					LeadsCount: 10 + writer,
					TCV:        int64(1000 * (writer + 1)),
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	snap, err := store.Get(context.Background(), OwnerKey(7, monday))
	require.NoError(t, err)
	// The surviving row is one writer's complete snapshot, never a blend.
	switch snap.LeadsCount {
	case 10:
		assert.Equal(t, int64(1000), snap.TCV)
	case 11:
		assert.Equal(t, int64(2000), snap.TCV)
	default:
		t.Fatalf("unexpected leads count %d", snap.LeadsCount)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Upsert(ctx, Snapshot{WeekStart: day(2025, time.June, 16)}))
	_, err := store.Get(ctx, CompanyKey(day(2025, time.June, 16)))
	assert.Error(t, err)
}
