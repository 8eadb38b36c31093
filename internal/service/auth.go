package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/timi/timi-go/internal/crypto"
	"github.com/timi/timi-go/internal/model"
	"github.com/timi/timi-go/internal/repository"
)

const tokenTypeBearer = "bearer"

// UserStore persists user records. Create must fail with repository.ErrDuplicateEmail when
// the email is taken; lookups of unknown emails fail with repository.ErrUserNotFound.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, email string) error
}

// TokenService issues and verifies bearer tokens for a subject.
type TokenService interface {
	Issue(subject string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// AuthService handles authentication business logic.
type AuthService struct {
	users  UserStore
	hasher crypto.Hasher
	tokens TokenService
	logger *slog.Logger
	now    func() time.Time

	// dummyHash is verified against when the email is unknown so both login failure paths
	// cost one hash computation.
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher crypto.Hasher, tokens TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// NormalizeEmail trims and lowercases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account and returns an auth token.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}

	// The store's unique key is the real guard; this only short-circuits the hash.
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return model.AuthResponse{}, ErrDuplicateEmail
	case !errors.Is(err, repository.ErrUserNotFound):
		return model.AuthResponse{}, err
	}

	if err := crypto.CheckPasswordStrength(req.Password); err != nil {
		return model.AuthResponse{}, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         cleanName(req.Name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrDuplicateEmail
		}
		return model.AuthResponse{}, err
	}

	s.logger.Info("user registered", "email", email)
	return s.issue(user)
}

// Login authenticates a user and returns an auth token. Unknown emails and wrong passwords
// fail with the same ErrInvalidCredentials; only the log tells them apart.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	email := NormalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(req.Password, s.timingHash())
			s.logger.Info("login failed: unknown email", "email", email)
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.Info("login failed: wrong password", "email", email)
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	return s.issue(user)
}

// CurrentUser resolves the user a bearer token was issued for.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("token rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// Logout acknowledges a logout. Tokens are stateless, so the client must discard its copy;
// an issued token stays valid until it expires.
func (s *AuthService) Logout() model.MessageResponse {
	return model.MessageResponse{Message: "Successfully logged out"}
}

// UpdateProfile changes the display name of the user identified by email. An absent name
// leaves it unchanged; a blank name clears it.
func (s *AuthService) UpdateProfile(ctx context.Context, email string, req model.UpdateProfileRequest) (model.MeResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.MeResponse{}, ErrUserNotFound
		}
		return model.MeResponse{}, err
	}

	if req.Name != nil {
		user.Name = cleanName(req.Name)
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.MeResponse{}, ErrUserNotFound
		}
		return model.MeResponse{}, err
	}

	return Me(user), nil
}

// DeleteAccount removes the user and all of the user's tasks.
func (s *AuthService) DeleteAccount(ctx context.Context, email string) error {
	err := s.users.Delete(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", "email", email)
	return nil
}

// SeedUser creates a user with the given password unless the email already exists.
// It skips the registration password policy and reports whether a user was created.
func (s *AuthService) SeedUser(ctx context.Context, email, password string) (bool, error) {
	email = NormalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash seed password: %w", err)
	}

	now := s.now().UTC()
	err = s.users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Me builds the current-user view of user.
func Me(user *model.User) model.MeResponse {
	return model.MeResponse{
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

func (s *AuthService) issue(user *model.User) (model.AuthResponse, error) {
	token, _, err := s.tokens.Issue(user.Email)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("issue token: %w", err)
	}

	return model.AuthResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		User: model.UserResponse{
			Email: user.Email,
			Name:  user.Name,
		},
	}, nil
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalizer")
		if err != nil {
			s.logger.Warn("could not prepare timing hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func cleanName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
