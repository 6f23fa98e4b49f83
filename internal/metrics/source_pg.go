package metrics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource reads live lead/opportunity state straight from the CRM tables.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource wires the data source to a connection pool.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

func (s *PGSource) LeadCounts(ctx context.Context, ownerID *int64) (int, int, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE leads_status <> $1),
		       COUNT(*) FILTER (WHERE leads_status = $2)
		FROM sales_leads`
	args := []interface{}{LeadStatusUnqualified, LeadStatusQualified}
	if ownerID != nil {
		query += " WHERE owner_id = $3"
		args = append(args, *ownerID)
	}

	var total, qualified int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total, &qualified); err != nil {
		return 0, 0, fmt.Errorf("metrics: count leads: %w", err)
	}
	return total, qualified, nil
}

func (s *PGSource) Opportunities(ctx context.Context, ownerID *int64) ([]Opportunity, error) {
	query := `
		SELECT id, owner_id, stage, mrc_usd, otc_usd, tcv_usd, est_act_date
		FROM pipeline`
	var args []interface{}
	if ownerID != nil {
		query += " WHERE owner_id = $1"
		args = append(args, *ownerID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metrics: query opportunities: %w", err)
	}
	defer rows.Close()

	var opps []Opportunity
	for rows.Next() {
		var o Opportunity
		var actDate pgtype.Date
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.Stage, &o.MRC, &o.OTC, &o.TCV, &actDate); err != nil {
			return nil, fmt.Errorf("metrics: scan opportunity: %w", err)
		}
		if actDate.Valid {
			d := Date(actDate.Time)
			o.ActivationDate = &d
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metrics: iterate opportunities: %w", err)
	}
	return opps, nil
}

func (s *PGSource) ActiveOwnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM users WHERE is_active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("metrics: query active owners: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("metrics: scan owner id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metrics: iterate owners: %w", err)
	}
	return ids, nil
}

var _ DataSource = (*PGSource)(nil)
