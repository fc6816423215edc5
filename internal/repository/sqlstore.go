package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"user-lifecycle/internal/domain"
)

// Dialect is what differs between the SQL credential stores.
type Dialect struct {
	// Schema statements run in order by Init.
	Schema []string
	// InactiveFilter is the WHERE predicate selecting deactivated users.
	InactiveFilter string
	// IsDuplicate reports whether an insert error is a unique-key violation.
	IsDuplicate func(error) bool
}

// SQLUserRepository implements UserRepository over database/sql with "?" placeholders.
type SQLUserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLUserRepository(db *sql.DB, dialect Dialect) *SQLUserRepository {
	return &SQLUserRepository{db: db, dialect: dialect}
}

func (r *SQLUserRepository) Init(ctx context.Context) error {
	for _, stmt := range r.dialect.Schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init users schema: %w", err)
		}
	}
	return nil
}

func (r *SQLUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: check email: %w", domain.ErrStorage, err)
	}
	return exists, nil
}

func (r *SQLUserRepository) Insert(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Height:       in.Height,
		Weight:       in.Weight,
		Sex:          in.Sex,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (name, email, password_hash, height, weight, sex, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Height,
		user.Weight,
		user.Sex,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if r.dialect.IsDuplicate(err) {
			return nil, fmt.Errorf("insert user: %w", domain.ErrDuplicateEmail)
		}
		return nil, fmt.Errorf("%w: insert user: %w", domain.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: user last insert id: %w", domain.ErrStorage, err)
	}
	user.ID = id
	return user, nil
}

func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+UserColumns+` FROM users WHERE email = ? LIMIT 1`, email)
	return ScanUser(row)
}

func (r *SQLUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+UserColumns+` FROM users WHERE id = ?`, id)
	return ScanUser(row)
}

func (r *SQLUserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+UserColumns+` FROM users ORDER BY id`)
}

func (r *SQLUserRepository) ListInactive(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+UserColumns+` FROM users WHERE `+r.dialect.InactiveFilter+` ORDER BY id`)
}

func (r *SQLUserRepository) list(ctx context.Context, query string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", domain.ErrStorage, err)
	}
	return ScanUsers(rows)
}

func (r *SQLUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: set user active: %w", domain.ErrStorage, err)
	}
	return ExpectAffected(res)
}

func (r *SQLUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: update password hash: %w", domain.ErrStorage, err)
	}
	return ExpectAffected(res)
}

func (r *SQLUserRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete user: %w", domain.ErrStorage, err)
	}
	return ExpectAffected(res)
}

var _ UserRepository = (*SQLUserRepository)(nil)
