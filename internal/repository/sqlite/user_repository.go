package sqlite

import (
	"database/sql"
	"errors"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"user-lifecycle/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	height REAL NOT NULL DEFAULT 0,
	weight REAL NOT NULL DEFAULT 0,
	sex TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const createActiveIndex = `CREATE INDEX IF NOT EXISTS idx_users_active ON users (active);`

// NewUserRepository returns the sqlite credential store.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return repository.NewSQLUserRepository(db, repository.Dialect{
		Schema:         []string{createUsersTable, createActiveIndex},
		InactiveFilter: "active = 0",
		IsDuplicate:    isUniqueViolation,
	})
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
