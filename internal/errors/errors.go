package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an application error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is an expected, user-facing failure. Message is safe to return to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports kind equality so that errors.Is(err, ErrUnauthorized) matches
// every unauthorized variant regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	// ErrValidation is the base for missing or malformed input.
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = &Error{Kind: KindConflict, Message: "user already exists"}
	// ErrProductAlreadyExists is returned when a product sku is taken.
	ErrProductAlreadyExists = &Error{Kind: KindConflict, Message: "product already exists"}
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	// ErrUnauthorized is returned when no verified identity is present.
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	// ErrMissingAuthHeader is returned when the Authorization header is absent.
	ErrMissingAuthHeader = &Error{Kind: KindUnauthorized, Message: "missing authorization header"}
	// ErrInvalidAuthFormat is returned when the header is not "Bearer <token>".
	ErrInvalidAuthFormat = &Error{Kind: KindUnauthorized, Message: "invalid authorization format"}
	// ErrInvalidToken is returned when the bearer token fails verification.
	ErrInvalidToken = &Error{Kind: KindUnauthorized, Message: "invalid or expired token"}
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "forbidden"}
	// ErrNotFound is returned for missing resources.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}
)

// Validation builds a validation error with a client-facing message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Forbidden builds a forbidden error with a client-facing message.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything that is not an
// *Error collapses to a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}

	switch appErr.Kind {
	case KindValidation:
		return NewHTTPError(http.StatusBadRequest, appErr.Message, "VALIDATION_ERROR")
	case KindConflict:
		code := "CONFLICT"
		if appErr == ErrUserAlreadyExists {
			code = "USER_ALREADY_EXISTS"
		}
		return NewHTTPError(http.StatusConflict, appErr.Message, code)
	case KindInvalidCredentials:
		return NewHTTPError(http.StatusUnauthorized, appErr.Message, "INVALID_CREDENTIALS")
	case KindUnauthorized:
		return NewHTTPError(http.StatusUnauthorized, appErr.Message, "UNAUTHORIZED")
	case KindForbidden:
		return NewHTTPError(http.StatusForbidden, appErr.Message, "FORBIDDEN")
	case KindNotFound:
		return NewHTTPError(http.StatusNotFound, appErr.Message, "NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
