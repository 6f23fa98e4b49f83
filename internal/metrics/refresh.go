package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeEvent describes a committed mutation to a lead or opportunity record.
// The CRUD layer publishes one after every successful commit.
type ChangeEvent struct {
	ID         uuid.UUID
	Entity     string // "lead" or "opportunity"
	Action     string // "create", "update" or "delete"
	OwnerID    *int64
	OccurredAt time.Time
}

// NewChangeEvent stamps a change event with an ID and timestamp.
func NewChangeEvent(entity, action string, ownerID *int64) ChangeEvent {
	return ChangeEvent{
		ID:         uuid.New(),
		Entity:     entity,
		Action:     action,
		OwnerID:    ownerID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher is the change-notification capability consumed by the CRUD layer.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent)
}

// Notifier is an in-process fan-out bus for change events. Delivery is
// synchronous: Publish returns after every subscriber has run.
type Notifier struct {
	mu   sync.RWMutex
	subs []func(context.Context, ChangeEvent)
}

// NewNotifier constructs an empty bus.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a handler for future events.
func (n *Notifier) Subscribe(fn func(context.Context, ChangeEvent)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// Publish delivers the event to every subscriber.
func (n *Notifier) Publish(ctx context.Context, ev ChangeEvent) {
	n.mu.RLock()
	subs := make([]func(context.Context, ChangeEvent), len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, ev)
	}
}

var _ Publisher = (*Notifier)(nil)

type suspendKey struct{}

// suspension accumulates owners touched while refresh is suspended. One
// instance per Suspend call, carried on the context, so concurrent bulk
// operations do not interfere with each other.
type suspension struct {
	mu     sync.Mutex
	owners map[int64]struct{}
}

func (s *suspension) mark(ownerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[ownerID] = struct{}{}
}

func (s *suspension) drain() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.owners))
	for id := range s.owners {
		ids = append(ids, id)
	}
	s.owners = make(map[int64]struct{})
	return ids
}

func suspensionFrom(ctx context.Context) *suspension {
	s, _ := ctx.Value(suspendKey{}).(*suspension)
	return s
}

// Refresher consumes change events and invokes the aggregator for the
// affected owner and the company rollup. Failures never propagate to the
// triggering mutation; they are logged and counted.
type Refresher struct {
	agg     *Service
	logger  *slog.Logger
	timeout time.Duration
}

// NewRefresher wires the refresher and subscribes it to the bus.
func NewRefresher(agg *Service, bus *Notifier, logger *slog.Logger, timeout time.Duration) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refresher{agg: agg, logger: logger, timeout: timeout}
	if bus != nil {
		bus.Subscribe(r.HandleChange)
	}
	return r
}

// HandleChange reacts to one committed mutation. Events without an owner are
// skipped; events under a suspended scope are recorded for the resume pass.
func (r *Refresher) HandleChange(ctx context.Context, ev ChangeEvent) {
	if ev.OwnerID == nil {
		return
	}
	if scope := suspensionFrom(ctx); scope != nil {
		scope.mark(*ev.OwnerID)
		return
	}
	r.refresh(ctx, *ev.OwnerID)
}

// Suspend returns a context under which change events accumulate instead of
// triggering refreshes, plus a resume function that runs one refresh pass
// over every affected owner followed by a single company rollup.
func (r *Refresher) Suspend(ctx context.Context) (context.Context, func()) {
	scope := &suspension{owners: make(map[int64]struct{})}
	sctx := context.WithValue(ctx, suspendKey{}, scope)
	resume := func() {
		owners := scope.drain()
		if len(owners) == 0 {
			return
		}
		base := context.WithoutCancel(ctx)
		for _, ownerID := range owners {
			rctx, cancel := r.runContext(base)
			if err := r.agg.refreshKey(rctx, &ownerID); err != nil {
				r.logger.Error("deferred owner refresh",
					slog.Int64("owner_id", ownerID), slog.Any("error", err))
			}
			cancel()
		}
		rctx, cancel := r.runContext(base)
		defer cancel()
		if err := r.agg.RefreshCompany(rctx); err != nil {
			r.logger.Error("deferred company refresh", slog.Any("error", err))
		}
	}
	return sctx, resume
}

func (r *Refresher) refresh(ctx context.Context, ownerID int64) {
	rctx, cancel := r.runContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := r.agg.Refresh(rctx, ownerID); err != nil {
		r.logger.Error("change-triggered refresh",
			slog.Int64("owner_id", ownerID), slog.Any("error", err))
	}
}

// runContext detaches the refresh from the request lifecycle while still
// bounding its duration.
func (r *Refresher) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
