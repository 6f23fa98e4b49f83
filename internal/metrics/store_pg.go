package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed snapshot store. The weekly_metrics table
// carries a NULLS NOT DISTINCT unique index on (owner_id, week_start), which
// makes the ON CONFLICT upsert the serialization point for concurrent
// aggregation runs on the same key.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wires the store to a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const upsertSnapshotSQL = `
INSERT INTO weekly_metrics (
    owner_id, week_start, leads_count, qualified_leads_count,
    pipeline_count, tcv, current_qtr_revenue, next_qtr_revenue,
    leads_vs_last_week, qualified_vs_last_week, pipeline_vs_last_week, tcv_vs_last_week,
    leads_vs_last_month, qualified_vs_last_month, pipeline_vs_last_month, tcv_vs_last_month,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
ON CONFLICT (owner_id, week_start) DO UPDATE SET
    leads_count = EXCLUDED.leads_count,
    qualified_leads_count = EXCLUDED.qualified_leads_count,
    pipeline_count = EXCLUDED.pipeline_count,
    tcv = EXCLUDED.tcv,
    current_qtr_revenue = EXCLUDED.current_qtr_revenue,
    next_qtr_revenue = EXCLUDED.next_qtr_revenue,
    leads_vs_last_week = EXCLUDED.leads_vs_last_week,
    qualified_vs_last_week = EXCLUDED.qualified_vs_last_week,
    pipeline_vs_last_week = EXCLUDED.pipeline_vs_last_week,
    tcv_vs_last_week = EXCLUDED.tcv_vs_last_week,
    leads_vs_last_month = EXCLUDED.leads_vs_last_month,
    qualified_vs_last_month = EXCLUDED.qualified_vs_last_month,
    pipeline_vs_last_month = EXCLUDED.pipeline_vs_last_month,
    tcv_vs_last_month = EXCLUDED.tcv_vs_last_month,
    updated_at = NOW()
`

// Upsert inserts or fully overwrites the row for the snapshot's key.
func (s *PGStore) Upsert(ctx context.Context, snapshot Snapshot) error {
	_, err := s.pool.Exec(ctx, upsertSnapshotSQL,
		ownerParam(snapshot.OwnerID),
		Date(snapshot.WeekStart),
		snapshot.LeadsCount,
		snapshot.QualifiedLeadsCount,
		snapshot.PipelineCount,
		snapshot.TCV,
		snapshot.CurrentQuarterRevenue,
		snapshot.NextQuarterRevenue,
		snapshot.LeadsVsLastWeek,
		snapshot.QualifiedVsLastWeek,
		snapshot.PipelineVsLastWeek,
		snapshot.TCVVsLastWeek,
		snapshot.LeadsVsLastMonth,
		snapshot.QualifiedVsLastMonth,
		snapshot.PipelineVsLastMonth,
		snapshot.TCVVsLastMonth,
	)
	if err != nil {
		return fmt.Errorf("metrics: upsert snapshot %s: %w", snapshot.Key(), err)
	}
	return nil
}

const getSnapshotSQL = `
SELECT owner_id, week_start, leads_count, qualified_leads_count,
       pipeline_count, tcv, current_qtr_revenue, next_qtr_revenue,
       leads_vs_last_week, qualified_vs_last_week, pipeline_vs_last_week, tcv_vs_last_week,
       leads_vs_last_month, qualified_vs_last_month, pipeline_vs_last_month, tcv_vs_last_month,
       updated_at
FROM weekly_metrics
WHERE owner_id IS NOT DISTINCT FROM $1 AND week_start = $2
`

// Get returns the snapshot for a key, or ErrSnapshotNotFound.
func (s *PGStore) Get(ctx context.Context, key Key) (*Snapshot, error) {
	row := s.pool.QueryRow(ctx, getSnapshotSQL, ownerParam(key.OwnerID), Date(key.WeekStart))

	var snap Snapshot
	var owner pgtype.Int8
	var weekStart pgtype.Date
	var updatedAt pgtype.Timestamptz
	err := row.Scan(
		&owner, &weekStart,
		&snap.LeadsCount, &snap.QualifiedLeadsCount,
		&snap.PipelineCount, &snap.TCV, &snap.CurrentQuarterRevenue, &snap.NextQuarterRevenue,
		&snap.LeadsVsLastWeek, &snap.QualifiedVsLastWeek, &snap.PipelineVsLastWeek, &snap.TCVVsLastWeek,
		&snap.LeadsVsLastMonth, &snap.QualifiedVsLastMonth, &snap.PipelineVsLastMonth, &snap.TCVVsLastMonth,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("metrics: get snapshot %s: %w", key, err)
	}

	if owner.Valid {
		id := owner.Int64
		snap.OwnerID = &id
	}
	if weekStart.Valid {
		snap.WeekStart = Date(weekStart.Time)
	}
	if updatedAt.Valid {
		snap.UpdatedAt = updatedAt.Time
	}
	return &snap, nil
}

func ownerParam(ownerID *int64) pgtype.Int8 {
	if ownerID == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *ownerID, Valid: true}
}

var _ Store = (*PGStore)(nil)
