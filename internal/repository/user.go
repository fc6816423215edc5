package repository

import (
	"context"

	"user-lifecycle/internal/domain"
)

// UserRepository is the credential store. Implementations must enforce email
// uniqueness at insert time and report it as domain.ErrDuplicateEmail; every
// other I/O failure wraps domain.ErrStorage.
type UserRepository interface {
	Init(ctx context.Context) error
	EmailExists(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, user domain.NewUser) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
	ListInactive(ctx context.Context) ([]domain.User, error)
	// SetActive matches on id only; writing the current value again still succeeds.
	SetActive(ctx context.Context, id int64, active bool) error
	// UpdatePasswordHash replaces a stored hash, used to upgrade the bcrypt cost.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	DeleteByID(ctx context.Context, id int64) error
}
