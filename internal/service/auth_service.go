package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"noelphones/internal/auth"
	apperrors "noelphones/internal/errors"
	"noelphones/internal/metrics"
	"noelphones/internal/model"
	"noelphones/internal/repository"
)

// TokenSigner issues bearer tokens for an identity.
type TokenSigner interface {
	Sign(id auth.Identity) (string, error)
}

// UserView is the outward representation of a user. It never carries the
// password hash.
type UserView struct {
	ID    uint       `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// NewUserView redacts a stored user.
func NewUserView(u *model.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// TokenBundle is returned by register and login.
type TokenBundle struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// RegisterInput carries registration fields. An empty Role means model.RoleUser.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*TokenBundle, error)
	Login(ctx context.Context, email, password string) (*TokenBundle, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (user *model.User, created bool, err error)
}

type authService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
	tokens TokenSigner
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, tokens TokenSigner) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

var (
	errMissingCredentials = apperrors.Validation("email and password required")
	errPasswordTooLong    = apperrors.Validation(fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
)

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return errMissingCredentials
	}
	if len(password) > auth.MaxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

// Register creates a user with a hashed password and returns a token bundle.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*TokenBundle, error) {
	bundle, err := s.register(ctx, in)
	metrics.AuthAttempts.WithLabelValues("register", outcome(err)).Inc()
	return bundle, err
}

func (s *authService) register(ctx context.Context, in RegisterInput) (*TokenBundle, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid role %q", in.Role))
	}

	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login verifies credentials and returns a fresh token bundle. Unknown email
// and wrong password produce the same error.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenBundle, error) {
	bundle, err := s.login(ctx, email, password)
	metrics.AuthAttempts.WithLabelValues("login", outcome(err)).Inc()
	return bundle, err
}

func (s *authService) login(ctx context.Context, email, password string) (*TokenBundle, error) {
	if email == "" || password == "" {
		return nil, errMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user)
}

// EnsureAdmin creates an admin account unless the email is already taken.
// An existing account is returned unchanged.
func (s *authService) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, bool, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, false, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	user, err := s.insertUser(ctx, RegisterInput{Name: name, Email: email, Password: password, Role: model.RoleAdmin})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *authService) createUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	return s.insertUser(ctx, in)
}

// insertUser hashes and stores a user whose email was just seen free.
func (s *authService) insertUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration won the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) issue(user *model.User) (*TokenBundle, error) {
	token, err := s.tokens.Sign(auth.IdentityOf(user))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &TokenBundle{Token: token, User: NewUserView(user)}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, apperrors.ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		return metrics.OutcomeConflict
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	default:
		return metrics.OutcomeError
	}
}
