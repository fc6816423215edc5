package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"user-lifecycle/internal/auth"
	"user-lifecycle/internal/domain"
	"user-lifecycle/internal/repository"
)

// bcrypt ignores input past this many bytes.
const maxPasswordBytes = 72

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string  `validate:"required,max=255"`
	Email    string  `validate:"required,email,max=255"`
	Password string  `validate:"required"`
	Height   float64 `validate:"gte=0"`
	Weight   float64 `validate:"gte=0"`
	Sex      string  `validate:"max=32"`
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
	ListInactive(ctx context.Context) ([]domain.User, error)
	Deactivate(ctx context.Context, id int64) (int64, error)
	DeleteByID(ctx context.Context, id int64) error
}

type userService struct {
	users     repository.UserRepository
	hasher    auth.PasswordHasher
	tokens    auth.TokenIssuer
	validate  *validator.Validate
	logger    *logrus.Logger
	dummyHash string
}

// NewUserService wires the service. It hashes a random throwaway password once
// so that logins for unknown emails cost the same as logins with a wrong password.
func NewUserService(ctx context.Context, users repository.UserRepository, hasher auth.PasswordHasher, tokens auth.TokenIssuer, logger *logrus.Logger) (UserService, error) {
	if logger == nil {
		logger = logrus.New()
	}
	dummyHash, err := hasher.Hash(ctx, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare login reference hash: %w", err)
	}
	return &userService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Sex = strings.TrimSpace(in.Sex)

	if err := s.validate.Struct(in); err != nil {
		return nil, invalidInput(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}

	// Fast path only. Two requests can both pass this probe; Insert decides.
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		s.logger.WithError(err).Error("check email availability")
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Insert(ctx, domain.NewUser{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Height:       in.Height,
		Weight:       in.Weight,
		Sex:          in.Sex,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			s.logger.Debug("registration lost uniqueness race")
			return nil, domain.ErrDuplicateEmail
		}
		s.logger.WithError(err).Error("insert user")
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same bcrypt work as a real mismatch.
			_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
			return nil, domain.ErrInvalidCredential
		}
		s.logger.WithError(err).Error("find user for login")
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("verify password")
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredential
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	signed, err := s.tokens.Issue(domain.SessionClaims{
		UserID:   user.ID,
		Username: user.Name,
		Email:    user.Email,
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("issue session token")
		return nil, err
	}

	return &domain.Session{
		UserID:    user.ID,
		Username:  user.Name,
		Email:     user.Email,
		Token:     signed.Token,
		IssuedAt:  signed.IssuedAt,
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// upgradeHash re-hashes a password stored under an old cost. Failures leave
// the old hash in place and do not fail the login.
func (s *userService) upgradeHash(ctx context.Context, id int64, password string) {
	entry := s.logger.WithField("user_id", id)
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		entry.WithError(err).Warn("rehash password")
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, id, hash); err != nil {
		entry.WithError(err).Warn("store rehashed password")
		return
	}
	entry.Info("password hash upgraded")
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) ListAll(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return sanitizeUsers(users), nil
}

func (s *userService) ListInactive(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListInactive(ctx)
	if err != nil {
		return nil, err
	}
	return sanitizeUsers(users), nil
}

// Deactivate clears the active flag. Deactivating an inactive user succeeds.
func (s *userService) Deactivate(ctx context.Context, id int64) (int64, error) {
	if err := s.users.SetActive(ctx, id, false); err != nil {
		return 0, err
	}
	s.logger.WithField("user_id", id).Info("user deactivated")
	return id, nil
}

func (s *userService) DeleteByID(ctx context.Context, id int64) error {
	if err := s.users.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("user_id", id).Info("user deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag())
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}

func sanitizeUsers(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = *sanitizeUser(&users[i])
	}
	return out
}
