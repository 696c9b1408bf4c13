package accounts

import "errors"

var (
	ErrNotFound        = errors.New("credential not found")
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrEmailRegistered = errors.New("email is already registered")
	ErrVersionConflict = errors.New("credential modified concurrently")
)
