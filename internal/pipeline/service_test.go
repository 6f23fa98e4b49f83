package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-crm/nimbus-crm/internal/metrics"
)

type mockRepo struct {
	deals  map[int64]*Deal
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{deals: make(map[int64]*Deal), nextID: 1}
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*Deal, error) {
	deal, ok := m.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *deal
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context, req ListDealsRequest) ([]Deal, int, error) {
	var out []Deal
	for _, deal := range m.deals {
		if req.OwnerID != nil && deal.OwnerID != *req.OwnerID {
			continue
		}
		if req.ExcludeLost && deal.Stage == StageDealLost {
			continue
		}
		out = append(out, *deal)
	}
	return out, len(out), nil
}

func (m *mockRepo) Create(ctx context.Context, deal Deal) (int64, error) {
	deal.ID = m.nextID
	m.deals[deal.ID] = &deal
	m.nextID++
	return deal.ID, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	deal, ok := m.deals[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["stage"]; ok {
		deal.Stage = v.(string)
	}
	if v, ok := updates["mrc_usd"]; ok {
		deal.MRC = v.(float64)
	}
	if v, ok := updates["tcv_usd"]; ok {
		deal.TCV = v.(float64)
	}
	if v, ok := updates["owner_id"]; ok {
		deal.OwnerID = v.(int64)
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.deals[id]; !ok {
		return ErrNotFound
	}
	delete(m.deals, id)
	return nil
}

type mockPublisher struct {
	events []metrics.ChangeEvent
}

func (m *mockPublisher) Publish(ctx context.Context, ev metrics.ChangeEvent) {
	m.events = append(m.events, ev)
}

func newTestService() (*Service, *mockRepo, *mockPublisher) {
	repo := newMockRepo()
	pub := &mockPublisher{}
	return NewService(repo, pub, nil, nil), repo, pub
}

func TestCreate_DerivesTCVWhenNotGiven(t *testing.T) {
	svc, repo, pub := newTestService()

	id, err := svc.Create(context.Background(), CreateDealRequest{
		Name:         "Acme rollout",
		OwnerID:      7,
		MRC:          1000,
		OTC:          500,
		ContractTerm: 2,
	})
	require.NoError(t, err)

	deal := repo.deals[id]
	assert.Equal(t, float64(1000*12*2+500), deal.TCV)
	assert.Equal(t, StageProspecting, deal.Stage, "stage defaults to the first")
	require.Len(t, pub.events, 1)
	assert.Equal(t, "opportunity", pub.events[0].Entity)
}

func TestCreate_ExplicitTCVWins(t *testing.T) {
	svc, repo, _ := newTestService()

	tcv := 99999.0
	id, err := svc.Create(context.Background(), CreateDealRequest{
		Name:    "Custom priced",
		OwnerID: 7,
		MRC:     1000,
		TCV:     &tcv,
	})
	require.NoError(t, err)
	assert.Equal(t, 99999.0, repo.deals[id].TCV)
}

func TestCreate_RejectsUnknownStage(t *testing.T) {
	svc, _, pub := newTestService()

	_, err := svc.Create(context.Background(), CreateDealRequest{
		Name:    "X",
		OwnerID: 7,
		Stage:   "8) Imaginary",
	})
	assert.ErrorIs(t, err, ErrInvalidStage)
	assert.Empty(t, pub.events)
}

func TestUpdate_RecomputesTCVOnRevenueChange(t *testing.T) {
	svc, repo, _ := newTestService()
	id, err := repo.Create(context.Background(), Deal{
		Name: "A", OwnerID: 7, Stage: StageProposal,
		MRC: 1000, OTC: 0, ContractTerm: 1, TCV: 12000,
	})
	require.NoError(t, err)

	newMRC := 2000.0
	require.NoError(t, svc.Update(context.Background(), id, UpdateDealRequest{MRC: &newMRC}))
	assert.Equal(t, float64(2000*12*1), repo.deals[id].TCV)
}

func TestUpdate_ReassignmentNotifiesBothOwners(t *testing.T) {
	svc, repo, pub := newTestService()
	id, err := repo.Create(context.Background(), Deal{Name: "A", OwnerID: 7, Stage: StageProposal})
	require.NoError(t, err)

	newOwner := int64(9)
	require.NoError(t, svc.Update(context.Background(), id, UpdateDealRequest{OwnerID: &newOwner}))

	require.Len(t, pub.events, 2)
	assert.Equal(t, int64(7), *pub.events[0].OwnerID)
	assert.Equal(t, int64(9), *pub.events[1].OwnerID)
}

func TestCreateConverted_LinksBackToLead(t *testing.T) {
	svc, repo, pub := newTestService()

	id, err := svc.CreateConverted(context.Background(), "Acme", nil, nil, nil, nil, 7, 42)
	require.NoError(t, err)

	deal := repo.deals[id]
	assert.Equal(t, StageLeadQualified, deal.Stage)
	require.NotNil(t, deal.SalesLeadID)
	assert.Equal(t, int64(42), *deal.SalesLeadID)
	assert.Len(t, pub.events, 1)
}

func TestDerivedTCV(t *testing.T) {
	assert.Equal(t, float64(0), Deal{}.DerivedTCV())
	assert.Equal(t, float64(500), Deal{OTC: 500}.DerivedTCV())
	assert.Equal(t, float64(36500), Deal{MRC: 1000, ContractTerm: 3, OTC: 500}.DerivedTCV())
	// A missing term contributes no recurring revenue.
	assert.Equal(t, float64(500), Deal{MRC: 1000, OTC: 500}.DerivedTCV())
}

func TestList_ExcludeLost(t *testing.T) {
	svc, repo, _ := newTestService()
	_, _ = repo.Create(context.Background(), Deal{Name: "A", OwnerID: 7, Stage: StageProposal})
	_, _ = repo.Create(context.Background(), Deal{Name: "B", OwnerID: 7, Stage: StageDealLost})

	out, total, err := svc.List(context.Background(), ListDealsRequest{ExcludeLost: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, out, 1)
}
