package leads

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

var ErrNotFound = errors.New("leads: record not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Lead, error)
	List(ctx context.Context, req ListLeadsRequest) ([]Lead, int, error)
	Create(ctx context.Context, lead Lead) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const leadColumns = `id, name, company, industry, email, mobile_number, owner_id,
	leads_status, source, comments, date_added, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Lead, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+leadColumns+" FROM sales_leads WHERE id = $1", id)
	return scanLead(row)
}

func (r *repository) List(ctx context.Context, req ListLeadsRequest) ([]Lead, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argPos))
		args = append(args, *req.OwnerID)
		argPos++
	}
	if req.Status != nil && *req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("leads_status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales_leads %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("leads: count: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM sales_leads %s ORDER BY date_added DESC, id DESC LIMIT $%d OFFSET $%d",
		leadColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("leads: list: %w", err)
	}
	defer rows.Close()

	var result []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *lead)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, lead Lead) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sales_leads (name, company, industry, email, mobile_number,
			owner_id, leads_status, source, comments, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, CURRENT_DATE))
		RETURNING id`,
		lead.Name, lead.Company, lead.Industry, lead.Email, lead.MobileNumber,
		lead.OwnerID, lead.Status, lead.Source, lead.Comments, nullableDate(lead.DateAdded),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("leads: create: %w", err)
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

	query := fmt.Sprintf("UPDATE sales_leads SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("leads: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM sales_leads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("leads: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	var company, industry, email, mobile, source, comments pgtype.Text
	var dateAdded pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&l.ID, &l.Name, &company, &industry, &email, &mobile,
		&l.OwnerID, &l.Status, &source, &comments, &dateAdded, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("leads: scan: %w", err)
	}
	if company.Valid {
		l.Company = &company.String
	}
	if industry.Valid {
		l.Industry = &industry.String
	}
	if email.Valid {
		l.Email = &email.String
	}
	if mobile.Valid {
		l.MobileNumber = &mobile.String
	}
	if source.Valid {
		l.Source = &source.String
	}
	if comments.Valid {
		l.Comments = &comments.String
	}
	if dateAdded.Valid {
		l.DateAdded = dateAdded.Time
	}
	if createdAt.Valid {
		l.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		l.UpdatedAt = updatedAt.Time
	}
	return &l, nil
}

func nullableDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
