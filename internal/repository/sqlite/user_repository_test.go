package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-lifecycle/internal/domain"
	"user-lifecycle/internal/repository"
)

func newTestRepo(t *testing.T) (repository.UserRepository, func(query string, args ...any)) {
	t.Helper()
	repo, db := newTestRepoDB(t)
	exec := func(query string, args ...any) {
		t.Helper()
		_, err := db.Exec(query, args...)
		require.NoError(t, err)
	}
	return repo, exec
}

func newTestRepoDB(t *testing.T) (repository.UserRepository, *sql.DB) {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo, db
}

func newUser(email string) domain.NewUser {
	return domain.NewUser{
		Name:         "Ana",
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Height:       170,
		Weight:       60,
		Sex:          "F",
	}
}

func TestUserRepository_InsertAndFind(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("ana@x.com"))
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.True(t, created.Active)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", byID.Name)
	assert.Equal(t, "ana@x.com", byID.Email)
	assert.Equal(t, "$2a$04$hash", byID.PasswordHash)
	assert.Equal(t, 170.0, byID.Height)
	assert.Equal(t, 60.0, byID.Weight)
	assert.Equal(t, "F", byID.Sex)
	assert.True(t, byID.Active)
	assert.WithinDuration(t, created.CreatedAt, byID.CreatedAt, time.Second)

	byEmail, err := repo.FindByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	exists, err := repo.EmailExists(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, newUser("ana@x.com"))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, newUser("ana@x.com"))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.NotErrorIs(t, err, domain.ErrStorage)

	_, err = repo.Insert(ctx, newUser("ANA@x.com"))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.SetActive(ctx, 42, false), domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteByID(ctx, 42), domain.ErrNotFound)
}

func TestUserRepository_ListAndInactive(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	a, err := repo.Insert(ctx, newUser("a@x.com"))
	require.NoError(t, err)
	b, err := repo.Insert(ctx, newUser("b@x.com"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, newUser("c@x.com"))
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, a.ID, false))
	require.NoError(t, repo.SetActive(ctx, b.ID, false))
	// matching the current value still counts as found
	require.NoError(t, repo.SetActive(ctx, b.ID, false))

	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inactive, err := repo.ListInactive(ctx)
	require.NoError(t, err)
	require.Len(t, inactive, 2)
	assert.Equal(t, a.ID, inactive[0].ID)
	assert.Equal(t, b.ID, inactive[1].ID)
	for _, u := range inactive {
		assert.False(t, u.Active)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("ana@x.com"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByID(ctx, created.ID))

	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteByID(ctx, created.ID), domain.ErrNotFound)

	// the email is free again once the row is gone
	_, err = repo.Insert(ctx, newUser("ana@x.com"))
	assert.NoError(t, err)
}

func TestUserRepository_MalformedRow(t *testing.T) {
	repo, exec := newTestRepo(t)
	now := time.Now().UTC()
	exec(`INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"Broken", "broken@x.com", "", now, now)

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = repo.FindByEmail(context.Background(), "broken@x.com")
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestUserRepository_ClosedDatabase(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	require.NoError(t, db.Close())

	_, err = repo.EmailExists(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = repo.Insert(context.Background(), newUser("a@x.com"))
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = repo.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("ana@x.com"))
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "$2a$10$upgraded"))

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$upgraded", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, created.ID+1, "$2a$10$upgraded"), domain.ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	_, db := newTestRepoDB(t)
	now := time.Now().UTC()
	insert := `INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	_, err := db.Exec(insert, "Ana", "ana@x.com", "h", now, now)
	require.NoError(t, err)

	_, err = db.Exec(insert, "Ana", "ana@x.com", "h", now, now)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	// other constraint failures are not duplicates
	_, err = db.Exec(insert, nil, "bob@x.com", "h", now, now)
	require.Error(t, err)
	assert.False(t, isUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (1, ?, ?, ?, ?, ?)`,
		"Cat", "cat@x.com", "h", now, now)
	require.Error(t, err)
	assert.False(t, isUniqueViolation(err))

	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueViolation(nil))
}
