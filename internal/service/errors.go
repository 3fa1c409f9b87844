package service

import "errors"

var (
	// ErrNotFound covers both a missing record and one owned by someone else
	ErrNotFound = errors.New("transaction not found or not yours")
	// ErrUnavailable wraps storage failures
	ErrUnavailable = errors.New("service unavailable")
	// ErrUnauthenticated means the credential is missing, invalid or expired
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned by Login for a wrong email or password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned by Register when the email is already registered
	ErrEmailTaken = errors.New("email already registered")
)

// ValidationError describes a malformed request payload
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
