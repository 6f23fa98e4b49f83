package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownerData struct {
	leads     int
	qualified int
	opps      []Opportunity
}

// mockSource serves per-owner fixtures; a nil owner returns the sum across
// all owners, mirroring the organization-wide queries.
type mockSource struct {
	data      map[int64]ownerData
	owners    []int64
	failOwner int64
}

func (m *mockSource) LeadCounts(ctx context.Context, ownerID *int64) (int, int, error) {
	if ownerID == nil {
		total, qualified := 0, 0
		for _, d := range m.data {
			total += d.leads
			qualified += d.qualified
		}
		return total, qualified, nil
	}
	if m.failOwner != 0 && *ownerID == m.failOwner {
		return 0, 0, fmt.Errorf("owner %d unavailable", *ownerID)
	}
	d := m.data[*ownerID]
	return d.leads, d.qualified, nil
}

func (m *mockSource) Opportunities(ctx context.Context, ownerID *int64) ([]Opportunity, error) {
	if ownerID == nil {
		var all []Opportunity
		for _, d := range m.data {
			all = append(all, d.opps...)
		}
		return all, nil
	}
	return m.data[*ownerID].opps, nil
}

func (m *mockSource) ActiveOwnerIDs(ctx context.Context) ([]int64, error) {
	return m.owners, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRefresh_WritesOwnerAndCompanyRows(t *testing.T) {
	// Wednesday 2025-06-18; week starts Monday 2025-06-16.
	now := day(2025, time.June, 18)
	source := &mockSource{
		data: map[int64]ownerData{
			7: {leads: 12, qualified: 4, opps: []Opportunity{
				{ID: 1, OwnerID: 7, Stage: "6a) Deal Won", TCV: 120000, MRC: 2000, OTC: 500, ActivationDate: datePtr(2025, time.February, 1)},
				{ID: 2, OwnerID: 7, Stage: StageDealLost, TCV: 99999},
			}},
			8: {leads: 3, qualified: 1},
		},
		owners: []int64{7, 8},
	}
	store := NewMemoryStore()
	svc := NewService(source, store, testLogger(), WithClock(fixedClock(now)))

	require.NoError(t, svc.Refresh(context.Background(), 7))

	monday := day(2025, time.June, 16)
	owner, err := store.Get(context.Background(), OwnerKey(7, monday))
	require.NoError(t, err)
	assert.Equal(t, 12, owner.LeadsCount)
	assert.Equal(t, 4, owner.QualifiedLeadsCount)
	assert.Equal(t, 1, owner.PipelineCount, "lost deals are excluded")
	assert.Equal(t, int64(120000), owner.TCV)
	// Activated before Q2, so both Q2 and Q3 see three full months of MRC
	// plus the OTC.
	assert.Equal(t, int64(2000*3+500), owner.CurrentQuarterRevenue)
	assert.Equal(t, int64(2000*3+500), owner.NextQuarterRevenue)

	company, err := store.Get(context.Background(), CompanyKey(monday))
	require.NoError(t, err)
	assert.Equal(t, 15, company.LeadsCount)
	assert.Equal(t, 5, company.QualifiedLeadsCount)
	assert.Equal(t, 1, company.PipelineCount)
}

func TestRefresh_Idempotent(t *testing.T) {
	now := day(2025, time.June, 18)
	source := &mockSource{
		data:   map[int64]ownerData{7: {leads: 5, qualified: 2}},
		owners: []int64{7},
	}
	store := NewMemoryStore()
	svc := NewService(source, store, testLogger(), WithClock(fixedClock(now)))

	require.NoError(t, svc.Refresh(context.Background(), 7))
	first, err := store.Get(context.Background(), OwnerKey(7, day(2025, time.June, 16)))
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(context.Background(), 7))
	second, err := store.Get(context.Background(), OwnerKey(7, day(2025, time.June, 16)))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len(), "owner plus company row, no duplicates")
	assert.Equal(t, first.LeadsCount, second.LeadsCount)
	assert.Equal(t, first.LeadsVsLastWeek, second.LeadsVsLastWeek)
}

func TestRefresh_DeltasAgainstBaselines(t *testing.T) {
	now := day(2025, time.June, 18)
	source := &mockSource{
		data:   map[int64]ownerData{7: {leads: 13, qualified: 6}},
		owners: []int64{7},
	}
	store := NewMemoryStore()

	// Last week's snapshot (Monday 2025-06-09).
	require.NoError(t, store.Upsert(context.Background(), Snapshot{
		OwnerID:             ptrInt64(7),
		WeekStart:           day(2025, time.June, 9),
		LeadsCount:          10,
		QualifiedLeadsCount: 2,
	}))
	// Month-over-month anchor: Monday on or before 2025-05-01 is April 28.
	require.NoError(t, store.Upsert(context.Background(), Snapshot{
		OwnerID:             ptrInt64(7),
		WeekStart:           day(2025, time.April, 28),
		LeadsCount:          4,
		QualifiedLeadsCount: 1,
	}))

	svc := NewService(source, store, testLogger(), WithClock(fixedClock(now)))
	require.NoError(t, svc.Refresh(context.Background(), 7))

	snap, err := store.Get(context.Background(), OwnerKey(7, day(2025, time.June, 16)))
	require.NoError(t, err)
	assert.Equal(t, 3, snap.LeadsVsLastWeek)
	assert.Equal(t, 4, snap.QualifiedVsLastWeek)
	assert.Equal(t, 9, snap.LeadsVsLastMonth)
	assert.Equal(t, 5, snap.QualifiedVsLastMonth)
}

func TestRefresh_MissingBaselineMeansZeros(t *testing.T) {
	now := day(2025, time.June, 18)
	source := &mockSource{
		data:   map[int64]ownerData{7: {leads: 13, qualified: 6}},
		owners: []int64{7},
	}
	store := NewMemoryStore()
	svc := NewService(source, store, testLogger(), WithClock(fixedClock(now)))

	require.NoError(t, svc.Refresh(context.Background(), 7))

	snap, err := store.Get(context.Background(), OwnerKey(7, day(2025, time.June, 16)))
	require.NoError(t, err)
	assert.Equal(t, 13, snap.LeadsVsLastWeek)
	assert.Equal(t, 6, snap.QualifiedVsLastMonth)
}

func TestRefreshAll_SkipsFailingOwner(t *testing.T) {
	now := day(2025, time.June, 18)
	source := &mockSource{
		data: map[int64]ownerData{
			7: {leads: 5, qualified: 1},
			8: {leads: 9, qualified: 3},
		},
		owners:    []int64{7, 8},
		failOwner: 8,
	}
	store := NewMemoryStore()
	svc := NewService(source, store, testLogger(), WithClock(fixedClock(now)))

	err := svc.RefreshAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")

	monday := day(2025, time.June, 16)
	_, err = store.Get(context.Background(), OwnerKey(7, monday))
	assert.NoError(t, err, "healthy owner still refreshed")
	_, err = store.Get(context.Background(), OwnerKey(8, monday))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = store.Get(context.Background(), CompanyKey(monday))
	assert.NoError(t, err, "company pass still runs")
}

func TestSnapshot_DefaultsToCurrentWeek(t *testing.T) {
	now := day(2025, time.June, 18)
	source := &mockSource{data: map[int64]ownerData{7: {leads: 2}}, owners: []int64{7}}
	store := NewMemoryStore()
	svc := NewService(source, store, testLogger(), WithClock(fixedClock(now)))

	require.NoError(t, svc.Refresh(context.Background(), 7))

	snap, err := svc.Snapshot(context.Background(), ptrInt64(7), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.June, 16), snap.WeekStart)

	_, err = svc.Snapshot(context.Background(), ptrInt64(99), time.Time{})
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func ptrInt64(v int64) *int64 { return &v }
