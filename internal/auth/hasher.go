// Package auth holds the credential primitives used by the user service:
// password hashing and session token signing.
package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"user-lifecycle/internal/domain"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash returns a self-describing salted hash suitable for storage.
	Hash(ctx context.Context, password string) (string, error)
	// Verify reports whether password matches hash. A mismatch is not an error.
	Verify(ctx context.Context, password, hash string) (bool, error)
	// NeedsRehash reports whether hash was produced with different parameters
	// than the ones used for new hashes.
	NeedsRehash(hash string) bool
}

// bcrypt reads at most this many bytes of the password.
const maxPasswordBytes = 72

// BcryptHasher runs bcrypt on a bounded number of concurrent slots so a burst of
// logins cannot occupy every CPU at once.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher builds a hasher. A zero cost selects bcrypt.DefaultCost and a
// non-positive workers value selects runtime.NumCPU().
func NewBcryptHasher(cost, workers int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(workers)),
	}, nil
}

// Cost returns the bcrypt work factor used for new hashes.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		// bcrypt ignores everything past the limit, so a longer input only
		// matched on its prefix.
		return len(password) <= maxPasswordBytes, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
}

func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err == nil && cost != h.cost
}

var _ PasswordHasher = (*BcryptHasher)(nil)
