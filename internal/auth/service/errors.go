package service

import "errors"

var (
	ErrNotFound          = errors.New("not_found")
	ErrExpired           = errors.New("expired")
	ErrAlreadyAuthorized = errors.New("already_authorized")
	ErrInactive          = errors.New("inactive")
	ErrMismatch          = errors.New("credential_mismatch")

	// ErrInvalidCredentials is the only failure callers of Authorize see for
	// unknown users, wrong passwords, inactive users and unknown codes.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidToken wraps the codec error for a token that is not
	// structurally valid.
	ErrInvalidToken = errors.New("invalid_token")

	ErrUsernameTaken = errors.New("username_taken")
)
