package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-lifecycle/internal/auth"
	"user-lifecycle/internal/domain"
	"user-lifecycle/internal/repository"
)

// fakeUsersRepo is an in-memory store that enforces email uniqueness on insert.
type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.User

	// blindProbe makes EmailExists always report false, as when two requests race.
	blindProbe bool
	err        error
	// updateErr fails only UpdatePasswordHash.
	updateErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{rows: make(map[int64]domain.User)}
}

func (f *fakeUsersRepo) Init(context.Context) error { return nil }

func (f *fakeUsersRepo) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.blindProbe {
		return false, nil
	}
	for _, u := range f.rows {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsersRepo) Insert(_ context.Context, in domain.NewUser) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.rows {
		if u.Email == in.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	f.nextID++
	now := time.Now().UTC()
	u := domain.User{
		ID:           f.nextID,
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
	f.rows[u.ID] = u
	return &u, nil
}

func (f *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsersRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsersRepo) ListAll(context.Context) ([]domain.User, error) {
	return f.filter(func(domain.User) bool { return true })
}

func (f *fakeUsersRepo) ListInactive(context.Context) ([]domain.User, error) {
	return f.filter(func(u domain.User) bool { return !u.Active })
}

func (f *fakeUsersRepo) filter(keep func(domain.User) bool) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.User, 0, len(f.rows))
	for _, u := range f.rows {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsersRepo) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = active
	f.rows[id] = u
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	f.rows[id] = u
	return nil
}

func (f *fakeUsersRepo) DeleteByID(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

var _ repository.UserRepository = (*fakeUsersRepo)(nil)

// countingHasher records how many verifications ran.
type countingHasher struct {
	auth.PasswordHasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(ctx, password, hash)
}

type failingIssuer struct{}

func (failingIssuer) Issue(domain.SessionClaims) (auth.SignedToken, error) {
	return auth.SignedToken{}, errors.Join(domain.ErrTokenSigning, errors.New("boom"))
}

func (failingIssuer) Parse(string) (*auth.Claims, error) { return nil, domain.ErrInvalidCredential }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	svc    UserService
	repo   *fakeUsersRepo
	hasher *countingHasher
	tokens auth.TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bc, err := auth.NewBcryptHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)
	tokens, err := auth.NewJWTIssuer("test-secret", "test", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		repo:   newFakeUsersRepo(),
		hasher: &countingHasher{PasswordHasher: bc},
		tokens: tokens,
	}
	f.svc, err = NewUserService(context.Background(), f.repo, f.hasher, f.tokens, quietLogger())
	require.NoError(t, err)
	return f
}
