package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTokenExpired is returned when an access token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when signature or structure checks fail.
	ErrTokenInvalid = errors.New("invalid token")
)

// ErrorCode identifies an error class in API responses.
type ErrorCode string

const (
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"
	CodeAuthorization  ErrorCode = "AUTHORIZATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed error every service operation returns. Callers match on
// Code instead of inspecting message strings.
type Error struct {
	Message string
	Code    ErrorCode
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ValidationError reports malformed input.
func ValidationError(msg string) *Error {
	return &Error{Message: msg, Code: CodeValidation, Status: http.StatusBadRequest}
}

// AuthenticationError reports bad or expired credentials, nonces, tokens and sessions.
func AuthenticationError(msg string) *Error {
	return &Error{Message: msg, Code: CodeAuthentication, Status: http.StatusUnauthorized}
}

// AuthorizationError reports an insufficient role.
func AuthorizationError(msg string) *Error {
	return &Error{Message: msg, Code: CodeAuthorization, Status: http.StatusForbidden}
}

// NotFoundError reports a missing record.
func NotFoundError(msg string) *Error {
	return &Error{Message: msg, Code: CodeNotFound, Status: http.StatusNotFound}
}

// ConflictError reports a uniqueness violation, e.g. a duplicate profile.
func ConflictError(msg string) *Error {
	return &Error{Message: msg, Code: CodeConflict, Status: http.StatusConflict}
}

// RateLimitError reports that a client exceeded its request budget.
func RateLimitError(msg string) *Error {
	return &Error{Message: msg, Code: CodeRateLimit, Status: http.StatusTooManyRequests}
}

// InternalError wraps an unexpected lower-layer failure. The cause is kept
// for logging; clients only ever see the generic message.
func InternalError(msg string, cause error) *Error {
	return &Error{Message: msg, Code: CodeInternal, Status: http.StatusInternalServerError, cause: cause}
}

// AsError extracts a typed *Error, rewrapping anything untyped as an
// internal error so the transport never leaks store or library details.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalError("internal server error", err)
}
