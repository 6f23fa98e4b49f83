package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nimbus-crm/nimbus-crm/internal/platform/cache"
)

// Lead statuses the aggregation engine needs to know about. The CRUD layer
// owns the full status lifecycle.
const (
	LeadStatusQualified   = "Qualified"
	LeadStatusUnqualified = "Unqualified"
)

// DataSource supplies the live lead/opportunity state the aggregator reads.
// Implementations are read-only from this package's perspective.
type DataSource interface {
	// LeadCounts returns the number of leads with status other than
	// Unqualified and the number with status Qualified, scoped to an owner
	// or, with a nil owner, the whole organization.
	LeadCounts(ctx context.Context, ownerID *int64) (total, qualified int, err error)
	// Opportunities returns every opportunity for the owner (or all, with a
	// nil owner), including lost deals; callers apply their own exclusions.
	Opportunities(ctx context.Context, ownerID *int64) ([]Opportunity, error)
	// ActiveOwnerIDs lists the owners covered by a full recompute.
	ActiveOwnerIDs(ctx context.Context) ([]int64, error)
}

// Service recomputes and persists weekly snapshots. All mutation of the
// snapshot store goes through it.
type Service struct {
	data    DataSource
	store   Store
	cache   *cache.Cache
	logger  *slog.Logger
	metrics *PipelineMetrics
	now     func() time.Time

	// refreshParallelism bounds the fan-out of RefreshAll.
	refreshParallelism int
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCache invalidates the dashboard read cache after successful upserts.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPipelineMetrics records refresh runs against Prometheus.
func WithPipelineMetrics(m *PipelineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the reference clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the aggregator.
func NewService(data DataSource, store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		data:               data,
		store:              store,
		logger:             logger,
		now:                func() time.Time { return time.Now().UTC() },
		refreshParallelism: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Refresh recomputes the snapshot for one owner and then the company-wide
// aggregate, keeping the rollup consistent with the individual update.
func (s *Service) Refresh(ctx context.Context, ownerID int64) error {
	tracker := s.metrics.Track("owner")
	err := s.refreshKey(ctx, &ownerID)
	if err == nil {
		err = s.refreshKey(ctx, nil)
	}
	return tracker.End(err)
}

// RefreshCompany recomputes only the organization-wide snapshot.
func (s *Service) RefreshCompany(ctx context.Context) error {
	tracker := s.metrics.Track("company")
	return tracker.End(s.refreshKey(ctx, nil))
}

// RefreshAll recomputes snapshots for every active owner and the company
// aggregate. A failing owner is logged and skipped; its previous snapshot
// stays authoritative until the next successful run.
func (s *Service) RefreshAll(ctx context.Context) error {
	tracker := s.metrics.Track("all")

	owners, err := s.data.ActiveOwnerIDs(ctx)
	if err != nil {
		return tracker.End(fmt.Errorf("metrics: list active owners: %w", err))
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.refreshParallelism)
	for _, ownerID := range owners {
		g.Go(func() error {
			if err := s.refreshKey(gctx, &ownerID); err != nil {
				s.logger.Error("refresh owner snapshot",
					slog.Int64("owner_id", ownerID), slog.Any("error", err))
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	err = s.refreshKey(ctx, nil)
	if err != nil {
		s.logger.Error("refresh company snapshot", slog.Any("error", err))
	}
	if failed.Load() > 0 && err == nil {
		err = fmt.Errorf("metrics: %d of %d owner refreshes failed", failed.Load(), len(owners))
	}
	s.logger.Info("full metrics refresh finished",
		slog.Int("owners", len(owners)), slog.Int64("failed", failed.Load()))
	return tracker.End(err)
}

// Snapshot is the read path for dashboard collaborators.
func (s *Service) Snapshot(ctx context.Context, ownerID *int64, weekStart time.Time) (*Snapshot, error) {
	if weekStart.IsZero() {
		weekStart = WeekStart(s.now())
	}
	return s.store.Get(ctx, Key{OwnerID: ownerID, WeekStart: Date(weekStart)})
}

// refreshKey recomputes and upserts a single (owner, current week) snapshot.
func (s *Service) refreshKey(ctx context.Context, ownerID *int64) error {
	snap, err := s.compute(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, snap); err != nil {
		return err
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump metrics cache", slog.Any("error", err))
	}
	return nil
}

func (s *Service) compute(ctx context.Context, ownerID *int64) (Snapshot, error) {
	today := Date(s.now())
	thisMonday := WeekStart(today)
	lastMonday := PrevWeekStart(today)
	prevMonthMonday := PrevMonthFirstMonday(today)

	curStart, curEnd := QuarterBounds(today)
	nextStart, nextEnd := NextQuarterBounds(today)

	leadsCount, qualifiedCount, err := s.data.LeadCounts(ctx, ownerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("metrics: lead counts: %w", err)
	}

	opps, err := s.data.Opportunities(ctx, ownerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("metrics: opportunities: %w", err)
	}

	pipelineCount := 0
	var tcv float64
	for _, o := range opps {
		if o.Lost() {
			continue
		}
		pipelineCount++
		tcv += amountOrZero(o.TCV)
	}

	snap := Snapshot{
		OwnerID:               ownerID,
		WeekStart:             thisMonday,
		LeadsCount:            leadsCount,
		QualifiedLeadsCount:   qualifiedCount,
		PipelineCount:         pipelineCount,
		TCV:                   int64(tcv),
		CurrentQuarterRevenue: QuarterRevenue(opps, curStart, curEnd),
		NextQuarterRevenue:    QuarterRevenue(opps, nextStart, nextEnd),
	}

	lastWeek, err := s.baseline(ctx, Key{OwnerID: ownerID, WeekStart: lastMonday})
	if err != nil {
		return Snapshot{}, err
	}
	lastMonth, err := s.baseline(ctx, Key{OwnerID: ownerID, WeekStart: prevMonthMonday})
	if err != nil {
		return Snapshot{}, err
	}

	snap.LeadsVsLastWeek = snap.LeadsCount - lastWeek.LeadsCount
	snap.QualifiedVsLastWeek = snap.QualifiedLeadsCount - lastWeek.QualifiedLeadsCount
	snap.PipelineVsLastWeek = snap.PipelineCount - lastWeek.PipelineCount
	snap.TCVVsLastWeek = snap.TCV - lastWeek.TCV

	snap.LeadsVsLastMonth = snap.LeadsCount - lastMonth.LeadsCount
	snap.QualifiedVsLastMonth = snap.QualifiedLeadsCount - lastMonth.QualifiedLeadsCount
	snap.PipelineVsLastMonth = snap.PipelineCount - lastMonth.PipelineCount
	snap.TCVVsLastMonth = snap.TCV - lastMonth.TCV

	return snap, nil
}

// baseline looks up a comparison snapshot, treating a missing row as zeros.
func (s *Service) baseline(ctx context.Context, key Key) (Snapshot, error) {
	snap, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("metrics: baseline %s: %w", key, err)
	}
	return *snap, nil
}
