package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefresher(t *testing.T) (*Refresher, *Notifier, *MemoryStore) {
	t.Helper()
	source := &mockSource{
		data: map[int64]ownerData{
			7: {leads: 5, qualified: 2},
			8: {leads: 3, qualified: 1},
		},
		owners: []int64{7, 8},
	}
	store := NewMemoryStore()
	svc := NewService(source, store, testLogger(), WithClock(fixedClock(day(2025, time.June, 18))))
	bus := NewNotifier()
	r := NewRefresher(svc, bus, testLogger(), time.Second)
	return r, bus, store
}

func TestRefresher_ChangeEventTriggersOwnerAndCompany(t *testing.T) {
	_, bus, store := newTestRefresher(t)

	bus.Publish(context.Background(), NewChangeEvent("lead", "create", ptrInt64(7)))

	monday := day(2025, time.June, 16)
	_, err := store.Get(context.Background(), OwnerKey(7, monday))
	assert.NoError(t, err)
	_, err = store.Get(context.Background(), CompanyKey(monday))
	assert.NoError(t, err)
}

func TestRefresher_EventWithoutOwnerIsSkipped(t *testing.T) {
	_, bus, store := newTestRefresher(t)

	bus.Publish(context.Background(), NewChangeEvent("lead", "delete", nil))

	assert.Equal(t, 0, store.Len())
}

func TestRefresher_SuspendDefersUntilResume(t *testing.T) {
	r, bus, store := newTestRefresher(t)

	sctx, resume := r.Suspend(context.Background())

	bus.Publish(sctx, NewChangeEvent("lead", "create", ptrInt64(7)))
	bus.Publish(sctx, NewChangeEvent("lead", "create", ptrInt64(7)))
	bus.Publish(sctx, NewChangeEvent("opportunity", "update", ptrInt64(8)))
	assert.Equal(t, 0, store.Len(), "no refresh while suspended")

	resume()

	monday := day(2025, time.June, 16)
	_, err := store.Get(context.Background(), OwnerKey(7, monday))
	assert.NoError(t, err)
	_, err = store.Get(context.Background(), OwnerKey(8, monday))
	assert.NoError(t, err)
	_, err = store.Get(context.Background(), CompanyKey(monday))
	assert.NoError(t, err)
	assert.Equal(t, 3, store.Len(), "one row per affected owner plus company")
}

func TestRefresher_ResumeWithoutEventsIsNoop(t *testing.T) {
	r, _, store := newTestRefresher(t)

	_, resume := r.Suspend(context.Background())
	resume()

	assert.Equal(t, 0, store.Len())
}

func TestRefresher_SuspensionScopesAreIndependent(t *testing.T) {
	r, bus, store := newTestRefresher(t)

	sctx, resume := r.Suspend(context.Background())
	defer resume()

	// An event on a context outside the suspended scope still refreshes.
	bus.Publish(context.Background(), NewChangeEvent("lead", "create", ptrInt64(8)))
	monday := day(2025, time.June, 16)
	_, err := store.Get(context.Background(), OwnerKey(8, monday))
	require.NoError(t, err)

	// Meanwhile the suspended scope keeps accumulating.
	bus.Publish(sctx, NewChangeEvent("lead", "create", ptrInt64(7)))
	_, err = store.Get(context.Background(), OwnerKey(7, monday))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestRefresher_ResumeSurvivesCanceledParent(t *testing.T) {
	r, bus, store := newTestRefresher(t)

	ctx, cancel := context.WithCancel(context.Background())
	sctx, resume := r.Suspend(ctx)
	bus.Publish(sctx, NewChangeEvent("lead", "create", ptrInt64(7)))

	// The bulk operation's request context ends before resume runs.
	cancel()
	resume()

	_, err := store.Get(context.Background(), OwnerKey(7, day(2025, time.June, 16)))
	assert.NoError(t, err)
}
