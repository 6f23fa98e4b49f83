package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("pipeline: record not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Deal, error)
	List(ctx context.Context, req ListDealsRequest) ([]Deal, int, error)
	Create(ctx context.Context, deal Deal) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const dealColumns = `id, name, company, industry, email, mobile_number, owner_id,
	sales_lead_id, product, tcv_usd, contract_term_yrs, mrc_usd, otc_usd,
	stage, win_rate, est_sign_date, est_act_date, comments, date_added,
	created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Deal, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+dealColumns+" FROM pipeline WHERE id = $1", id)
	return scanDeal(row)
}

func (r *repository) List(ctx context.Context, req ListDealsRequest) ([]Deal, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argPos))
		args = append(args, *req.OwnerID)
		argPos++
	}
	if req.Stage != nil && *req.Stage != "" {
		conditions = append(conditions, fmt.Sprintf("stage = $%d", argPos))
		args = append(args, *req.Stage)
		argPos++
	}
	if req.ExcludeLost {
		conditions = append(conditions, fmt.Sprintf("stage <> $%d", argPos))
		args = append(args, StageDealLost)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM pipeline %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pipeline: count: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM pipeline %s ORDER BY date_added DESC, id DESC LIMIT $%d OFFSET $%d",
		dealColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pipeline: list: %w", err)
	}
	defer rows.Close()

	var result []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *deal)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, deal Deal) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO pipeline (name, company, industry, email, mobile_number,
			owner_id, sales_lead_id, product, tcv_usd, contract_term_yrs,
			mrc_usd, otc_usd, stage, win_rate, est_sign_date, est_act_date,
			comments, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, COALESCE($18, CURRENT_DATE))
		RETURNING id`,
		deal.Name, deal.Company, deal.Industry, deal.Email, deal.MobileNumber,
		deal.OwnerID, deal.SalesLeadID, deal.Product, deal.TCV, deal.ContractTerm,
		deal.MRC, deal.OTC, deal.Stage, deal.WinRate, deal.EstSignDate,
		deal.ActivationDate, deal.Comments, nullableDate(deal.DateAdded),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("pipeline: create: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)
	argPos := 1
	for col, val := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argPos))
		args = append(args, val)
		argPos++
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE pipeline SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pipeline: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM pipeline WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("pipeline: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDeal(row pgx.Row) (*Deal, error) {
	var d Deal
	var company, industry, email, mobile, product, comments pgtype.Text
	var salesLeadID pgtype.Int8
	var estSign, estAct, dateAdded pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&d.ID, &d.Name, &company, &industry, &email, &mobile,
		&d.OwnerID, &salesLeadID, &product, &d.TCV, &d.ContractTerm,
		&d.MRC, &d.OTC, &d.Stage, &d.WinRate, &estSign, &estAct,
		&comments, &dateAdded, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pipeline: scan: %w", err)
	}
	if company.Valid {
		d.Company = &company.String
	}
	if industry.Valid {
		d.Industry = &industry.String
	}
	if email.Valid {
		d.Email = &email.String
	}
	if mobile.Valid {
		d.MobileNumber = &mobile.String
	}
	if product.Valid {
		d.Product = &product.String
	}
	if comments.Valid {
		d.Comments = &comments.String
	}
	if salesLeadID.Valid {
		v := salesLeadID.Int64
		d.SalesLeadID = &v
	}
	if estSign.Valid {
		t := estSign.Time
		d.EstSignDate = &t
	}
	if estAct.Valid {
		t := estAct.Time
		d.ActivationDate = &t
	}
	if dateAdded.Valid {
		d.DateAdded = dateAdded.Time
	}
	if createdAt.Valid {
		d.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		d.UpdatedAt = updatedAt.Time
	}
	return &d, nil
}

func nullableDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
