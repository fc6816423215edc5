package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"user-lifecycle/internal/domain"
)

// UserColumns is the column order ScanUser expects.
const UserColumns = `id, name, email, password_hash, height, weight, sex, active, created_at, updated_at`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanUser decodes one row selected with UserColumns. sql.ErrNoRows becomes
// domain.ErrNotFound; anything that does not decode into a usable user is a
// storage failure.
func ScanUser(row Scanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Height,
		&user.Weight,
		&user.Sex,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan user: %w", domain.ErrStorage, err)
	}
	if user.ID <= 0 || user.Email == "" || user.PasswordHash == "" {
		return nil, fmt.Errorf("%w: malformed user row %d", domain.ErrStorage, user.ID)
	}
	return &user, nil
}

// ScanUsers drains rows into a non-nil slice.
func ScanUsers(rows *sql.Rows) ([]domain.User, error) {
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := ScanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate users: %w", domain.ErrStorage, err)
	}
	return users, nil
}

// ExpectAffected maps a zero row count to domain.ErrNotFound.
func ExpectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", domain.ErrStorage, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
