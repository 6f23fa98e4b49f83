package users

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/nimbus-crm/nimbus-crm/internal/shared"
)

// ErrInvalidCredentials indicates an authentication failure.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

// Service owns account lifecycle and the list-active-owners capability used
// by the full metrics recompute.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, user User, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("users: hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.IsActive = true
	return s.repo.Create(ctx, user)
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ListActive returns every active owner.
func (s *Service) ListActive(ctx context.Context) ([]User, error) {
	return s.repo.ListActive(ctx)
}

// Deactivate flips an account inactive without deleting its history.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
