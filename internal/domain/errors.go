package domain

import "errors"

var (
	// ErrInvalidInput is returned for malformed or missing arguments.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when no live record matches an id or email.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredential is returned for any failed login, whatever the cause.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrHashing wraps failures of the password hashing primitive.
	ErrHashing = errors.New("password hashing failed")
	// ErrTokenSigning wraps failures while signing a session token.
	ErrTokenSigning = errors.New("token signing failed")
	// ErrStorage wraps I/O failures of the credential store.
	ErrStorage = errors.New("storage failure")
)
