package auth

import (
	"errors"
	"fmt"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apperrors "noelphones/internal/errors"
	"noelphones/internal/metrics"
	"noelphones/internal/model"
)

const identityKey = "auth.identity"

// TokenVerifier decodes a bearer token into the caller identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Middleware gates echo routes on a verified bearer token.
type Middleware struct {
	tokens       TokenVerifier
	log          zerolog.Logger
	authenticate echo.MiddlewareFunc
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(tokens TokenVerifier, log zerolog.Logger) *Middleware {
	m := &Middleware{tokens: tokens, log: log.With().Str("component", "auth").Logger()}
	m.authenticate = echojwt.WithConfig(echojwt.Config{
		ContextKey:       identityKey,
		TokenLookupFuncs: []middleware.ValuesExtractor{bearerToken},
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return m.tokens.Verify(token)
		},
		ErrorHandler: m.reject,
	})
	return m
}

// IdentityFrom returns the identity attached by Authenticate.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// Authenticate requires "Authorization: Bearer <token>" and attaches the
// verified identity to the context.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return m.authenticate(next)
}

// bearerToken accepts exactly two space separated parts with the literal
// scheme "Bearer".
func bearerToken(c echo.Context) ([]string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return nil, apperrors.ErrMissingAuthHeader
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperrors.ErrInvalidAuthFormat
	}
	return []string{parts[1]}, nil
}

func (m *Middleware) reject(c echo.Context, err error) error {
	var extractErr *echojwt.TokenExtractionError
	if errors.As(err, &extractErr) {
		reason := metrics.ReasonBadFormat
		if extractErr.Err == apperrors.ErrMissingAuthHeader {
			reason = metrics.ReasonMissingHeader
		}
		metrics.AuthRejections.WithLabelValues(reason).Inc()
		return extractErr.Err
	}

	reason := rejectionReason(err)
	metrics.AuthRejections.WithLabelValues(reason).Inc()
	m.log.Debug().
		Str("reason", reason).
		Str("path", c.Path()).
		Msg("bearer token rejected")
	return apperrors.ErrInvalidToken
}

// RequireRole returns Authenticate followed by a check that the caller has
// role. The check is only available in this composed form.
func (m *Middleware) RequireRole(role model.Role) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{m.Authenticate, requireRole(role)}
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func (m *Middleware) RequireAdmin() []echo.MiddlewareFunc {
	return m.RequireRole(model.RoleAdmin)
}

func requireRole(role model.Role) echo.MiddlewareFunc {
	denied := apperrors.Forbidden(fmt.Sprintf("%s role required", role))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				metrics.AuthRejections.WithLabelValues(metrics.ReasonNoIdentity).Inc()
				return apperrors.ErrUnauthorized
			}
			if id.Role != role {
				metrics.AuthRejections.WithLabelValues(metrics.ReasonRole).Inc()
				return denied
			}
			return next(c)
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return metrics.ReasonExpired
	case errors.Is(err, ErrTokenSignature):
		return metrics.ReasonBadSignature
	default:
		return metrics.ReasonMalformed
	}
}
