package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"noelphones/internal/model"
)

var (
	// ErrTokenMalformed is returned when a token cannot be decoded or lacks required claims.
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenSignature is returned when the integrity check fails.
	ErrTokenSignature = errors.New("token signature is invalid")
	// ErrTokenExpired is returned when the expiry has passed.
	ErrTokenExpired = errors.New("token is expired")
)

func init() {
	// Reject segments whose unused trailing bits are set, so every character
	// of the signature is significant.
	jwt.DecodeStrict = true
}

// Identity is the caller identity embedded in every issued token.
type Identity struct {
	ID    uint       `json:"id"`
	Role  model.Role `json:"role"`
	Email string     `json:"email"`
}

// IdentityOf returns the token identity for a stored user.
func IdentityOf(u *model.User) Identity {
	return Identity{ID: u.ID, Role: u.Role, Email: u.Email}
}

// Claims represents JWT claims.
type Claims struct {
	UserID uint       `json:"id"`
	Role   model.Role `json:"role"`
	Email  string     `json:"email"`
	jwt.RegisteredClaims
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

// JWTService signs and verifies HS256 bearer tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTService creates a new JWT service with the given secret and token lifetime.
func NewJWTService(secret string, ttl time.Duration, opts ...Option) *JWTService {
	s := &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		// Expiry is checked against s.now rather than the package clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for id that expires TTL from now.
func (s *JWTService) Sign(id Identity) (string, error) {
	if !id.Role.Valid() {
		return "", fmt.Errorf("sign token: unknown role %q", id.Role)
	}

	now := s.now()
	claims := &Claims{
		UserID: id.ID,
		Role:   id.Role,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry of tokenString and returns the
// embedded identity. Failures are one of ErrTokenMalformed,
// ErrTokenSignature or ErrTokenExpired.
func (s *JWTService) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Identity{}, ErrTokenSignature
		}
		return Identity{}, ErrTokenMalformed
	}

	if claims.ExpiresAt == nil || claims.UserID == 0 || !claims.Role.Valid() {
		return Identity{}, ErrTokenMalformed
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return Identity{}, ErrTokenExpired
	}

	return Identity{ID: claims.UserID, Role: claims.Role, Email: claims.Email}, nil
}
