package service

import "errors"

var (
	// ErrInvalidInput is returned for missing, malformed or mismatched signup fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailTaken is returned when the email already belongs to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	// ErrStoreUnavailable wraps failures of the credential or session store.
	ErrStoreUnavailable = errors.New("store unavailable")
)
