package lockout

import (
	"time"

	"github.com/glassworks/authcore/params"
)

// State is the lockout bookkeeping slice of a credential record.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Policy decides when repeated authentication failures lock an account.
// It is pure: callers own persisting the returned state.
type Policy struct {
	MaxAttempts int
	Duration    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: params.MaxLoginAttempts,
		Duration:    params.LockoutDuration,
	}
}

// IsLocked reports whether the account is locked at the given instant.
// An elapsed lock window reads as unlocked.
func (p Policy) IsLocked(state State, now time.Time) bool {
	return state.LockedUntil != nil && now.Before(*state.LockedUntil)
}

// Remaining returns how long the lock still holds, zero when unlocked.
func (p Policy) Remaining(state State, now time.Time) time.Duration {
	if !p.IsLocked(state, now) {
		return 0
	}
	return state.LockedUntil.Sub(now)
}

// LockExpired reports whether a previously set lock window has elapsed.
// The caller must persist the reset state so stale counters do not carry
// into the next lockout cycle.
func (p Policy) LockExpired(state State, now time.Time) bool {
	return state.LockedUntil != nil && !now.Before(*state.LockedUntil)
}

// RecordFailure increments the failure counter and, once it reaches
// MaxAttempts, starts the lock window. justLocked is true only on the
// transition that caused the lock.
func (p Policy) RecordFailure(state State, now time.Time) (State, bool) {
	if p.LockExpired(state, now) {
		state = State{}
	}
	state.FailedAttempts++
	if state.FailedAttempts >= p.MaxAttempts && state.LockedUntil == nil {
		until := now.Add(p.Duration)
		state.LockedUntil = &until
		return state, true
	}
	return state, false
}

// RecordSuccess resets the lockout bookkeeping.
func (p Policy) RecordSuccess() State {
	return State{}
}

// AttemptsRemaining returns how many failures are left before the lock,
// never negative.
func (p Policy) AttemptsRemaining(state State) int {
	remaining := p.MaxAttempts - state.FailedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
