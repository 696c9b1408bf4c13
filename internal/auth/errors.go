package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials never distinguishes a missing user from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrStorageUnavailable = errors.New("credential store unavailable")
)

// AccountLockedError carries the remaining lock time for the account
// owner. Callers must not relay it to third parties probing usernames.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return "account is temporarily locked"
}

func NewAccountLockedError(until time.Time) *AccountLockedError {
	return &AccountLockedError{Until: until}
}

// PolicyViolationError reports which password policy rules a candidate
// password failed.
type PolicyViolationError struct {
	Violations []string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("password rejected by policy: %v", e.Violations)
}
