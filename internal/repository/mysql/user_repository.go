package mysql

import (
	"database/sql"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"

	"user-lifecycle/internal/repository"
)

// ER_DUP_ENTRY
const errDuplicateEntry = 1062

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	height DOUBLE NOT NULL DEFAULT 0,
	weight DOUBLE NOT NULL DEFAULT 0,
	sex VARCHAR(32) NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	UNIQUE KEY uq_users_email (email),
	KEY idx_users_active (active)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`

// NewUserRepository returns the MySQL credential store. The db should come
// from Open so that UPDATE reports matched rows.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return repository.NewSQLUserRepository(db, repository.Dialect{
		Schema:         []string{createUsersTable},
		InactiveFilter: "active = FALSE",
		IsDuplicate:    isDuplicateEntry,
	})
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry
}
