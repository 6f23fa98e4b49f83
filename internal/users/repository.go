package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-crm/nimbus-crm/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListActive(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user User) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = `id, username, email, password_hash, full_name, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

func (r *repository) ListActive(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+userColumns+" FROM users WHERE is_active ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("users: list active: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, full_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("users: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var email, fullName pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &fullName, &u.IsActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	if email.Valid {
		u.Email = &email.String
	}
	if fullName.Valid {
		u.FullName = &fullName.String
	}
	if createdAt.Valid {
		u.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		u.UpdatedAt = updatedAt.Time
	}
	return &u, nil
}
