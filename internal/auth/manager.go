package auth

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glassworks/authcore/internal/accounts"
	"github.com/glassworks/authcore/internal/audit"
	"github.com/glassworks/authcore/internal/lockout"
	"github.com/glassworks/authcore/internal/password"
	"github.com/glassworks/authcore/internal/sessions"
	"github.com/glassworks/authcore/model"
)

// Failure reasons reported in AuthResult.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonAccountLocked      = "account_locked"
	ReasonAccountInactive    = "account_inactive"
	ReasonStorageError       = "storage_error"
)

const lockStripes = 64

// AuthResult is the outcome of one authentication attempt.
type AuthResult struct {
	Success           bool
	UserID            uint
	Reason            string
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// PermissionInvalidator drops a user's cached permission set. Absence is
// represented by a nil dependency, never probed reflectively.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, userID uint) error
}

// Manager orchestrates credential verification and lockout bookkeeping.
// Attempts for the same username are serialized on a striped lock so
// concurrent failures never undercount; cross-process writers are handled
// by the store's version check.
type Manager struct {
	store           accounts.CredentialStore
	hasher          *password.Hasher
	policyValidator *password.PolicyValidator
	lockoutPolicy   lockout.Policy
	auditLog        *audit.Log
	sessionManager  *sessions.Manager     // optional
	permCache       PermissionInvalidator // optional

	dummyDigest string
	userLocks   [lockStripes]sync.Mutex
	nowFunc     func() time.Time
}

type ManagerConfig struct {
	Store           accounts.CredentialStore
	Hasher          *password.Hasher
	PolicyValidator *password.PolicyValidator
	LockoutPolicy   lockout.Policy
	AuditLog        *audit.Log
	SessionManager  *sessions.Manager
	PermCache       PermissionInvalidator
}

func NewManager(config ManagerConfig) (*Manager, error) {
	if config.Store == nil {
		return nil, errors.New("credential store is required")
	}
	if config.Hasher == nil {
		config.Hasher = password.NewHasher()
	}
	if config.PolicyValidator == nil {
		config.PolicyValidator = password.NewPolicyValidator()
	}
	if config.LockoutPolicy.MaxAttempts == 0 {
		config.LockoutPolicy = lockout.DefaultPolicy()
	}
	// verified against whenever the username does not resolve, so the
	// miss path costs the same hashing work as a real verification
	dummyDigest, err := config.Hasher.Hash("authcore.dummy." + strconv.FormatInt(time.Now().UnixNano(), 16))
	if err != nil {
		return nil, fmt.Errorf("could not prepare dummy digest: %w", err)
	}
	return &Manager{
		store:           config.Store,
		hasher:          config.Hasher,
		policyValidator: config.PolicyValidator,
		lockoutPolicy:   config.LockoutPolicy,
		auditLog:        config.AuditLog,
		sessionManager:  config.SessionManager,
		permCache:       config.PermCache,
		dummyDigest:     dummyDigest,
		nowFunc:         time.Now,
	}, nil
}

func (m *Manager) userLock(username string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(username)))
	return &m.userLocks[h.Sum32()%lockStripes]
}

func stateOf(cred *model.Credential) lockout.State {
	return lockout.State{
		FailedAttempts: cred.FailedAttempts,
		LockedUntil:    cred.LockedUntil,
	}
}

// Authenticate verifies a username/password pair. Business outcomes
// (wrong credentials, locked, inactive) come back in the AuthResult; a
// non-nil error is returned only when the credential store failed and the
// attempt could not be decided.
func (m *Manager) Authenticate(ctx context.Context, username, plaintext, sourceIP string) (AuthResult, error) {
	lock := m.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	// the outcome must be persisted even if the caller goes away mid-attempt
	ctx = context.WithoutCancel(ctx)

	cred, err := m.store.FindByUsername(ctx, username)
	if errors.Is(err, accounts.ErrNotFound) {
		m.hasher.Verify(plaintext, m.dummyDigest)
		m.appendAudit(ctx, 0, username, sourceIP, audit.EventTypeLoginFailure, "unknown username")
		return AuthResult{Reason: ReasonInvalidCredentials}, nil
	}
	if err != nil {
		return AuthResult{Reason: ReasonStorageError}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if cred.Status == model.StatusInactive || cred.Status == model.StatusSuspended {
		m.appendAudit(ctx, cred.ID, cred.Username, sourceIP, audit.EventTypeLoginFailure, "account inactive")
		return AuthResult{Reason: ReasonAccountInactive}, nil
	}

	now := m.nowFunc()
	state := stateOf(cred)
	if m.lockoutPolicy.IsLocked(state, now) {
		m.appendAudit(ctx, cred.ID, cred.Username, sourceIP, audit.EventTypeLoginFailure, "account locked")
		return AuthResult{Reason: ReasonAccountLocked, LockedUntil: state.LockedUntil}, nil
	}

	if !m.hasher.Verify(plaintext, cred.PasswordHash) {
		newState, justLocked, err := m.applyLoginState(ctx, cred, nil, func(prev lockout.State) (lockout.State, bool) {
			return m.lockoutPolicy.RecordFailure(prev, now)
		})
		if err != nil {
			return AuthResult{Reason: ReasonStorageError}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		m.appendAudit(ctx, cred.ID, cred.Username, sourceIP, audit.EventTypeLoginFailure, "wrong password")
		result := AuthResult{
			Reason:            ReasonInvalidCredentials,
			AttemptsRemaining: m.lockoutPolicy.AttemptsRemaining(newState),
		}
		if justLocked {
			m.appendAudit(ctx, cred.ID, cred.Username, sourceIP, audit.EventTypeAccountLocked,
				fmt.Sprintf("%d consecutive failures", newState.FailedAttempts))
			if m.sessionManager != nil {
				m.sessionManager.RevokeAllForUser(ctx, cred.ID)
			}
		}
		if m.lockoutPolicy.IsLocked(newState, now) {
			result.Reason = ReasonAccountLocked
			result.LockedUntil = newState.LockedUntil
		}
		return result, nil
	}

	lastLogin := now
	if _, _, err := m.applyLoginState(ctx, cred, &lastLogin, func(prev lockout.State) (lockout.State, bool) {
		return m.lockoutPolicy.RecordSuccess(), false
	}); err != nil {
		return AuthResult{Reason: ReasonStorageError}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	m.appendAudit(ctx, cred.ID, cred.Username, sourceIP, audit.EventTypeLoginSuccess, "")
	return AuthResult{Success: true, UserID: cred.ID}, nil
}

// applyLoginState persists a lockout transition with the store's version
// check, re-reading and re-deciding on conflict with concurrent writers.
func (m *Manager) applyLoginState(ctx context.Context, cred *model.Credential, lastLogin *time.Time,
	apply func(lockout.State) (lockout.State, bool)) (lockout.State, bool, error) {

	for attempt := 0; ; attempt++ {
		newState, justLocked := apply(stateOf(cred))
		err := m.store.UpdateLoginState(ctx, cred.ID, cred.Version, accounts.LoginState{
			FailedAttempts: newState.FailedAttempts,
			LockedUntil:    newState.LockedUntil,
			LastLogin:      lastLogin,
		})
		if err == nil {
			return newState, justLocked, nil
		}
		if !errors.Is(err, accounts.ErrVersionConflict) || attempt >= 3 {
			return lockout.State{}, false, err
		}
		reloaded, err := m.store.FindByUsername(ctx, cred.Username)
		if err != nil {
			return lockout.State{}, false, err
		}
		cred = reloaded
	}
}

// IsLocked reports whether the account is locked and how many minutes of
// the lock window remain, rounded up.
func (m *Manager) IsLocked(ctx context.Context, username string) (bool, int, error) {
	cred, err := m.store.FindByUsername(ctx, username)
	if errors.Is(err, accounts.ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	now := m.nowFunc()
	state := stateOf(cred)
	if !m.lockoutPolicy.IsLocked(state, now) {
		return false, 0, nil
	}
	remaining := m.lockoutPolicy.Remaining(state, now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	return true, minutes, nil
}

// ChangePassword re-hashes the account password after verifying the
// current one and checking the new one against the policy. All of the
// user's sessions are revoked so every client re-authenticates.
func (m *Manager) ChangePassword(ctx context.Context, userID uint, current, newPassword string) error {
	cred, err := m.store.FindByID(ctx, userID)
	if errors.Is(err, accounts.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if cred.Status == model.StatusInactive || cred.Status == model.StatusSuspended {
		return ErrAccountInactive
	}
	if state := stateOf(cred); m.lockoutPolicy.IsLocked(state, m.nowFunc()) {
		return NewAccountLockedError(*state.LockedUntil)
	}

	if !m.hasher.Verify(current, cred.PasswordHash) {
		m.appendAudit(ctx, cred.ID, cred.Username, "", audit.EventTypeLoginFailure, "password change with wrong current password")
		return ErrInvalidCredentials
	}
	if result := m.policyValidator.Validate(newPassword); !result.Valid {
		return &PolicyViolationError{Violations: result.Violations}
	}

	digest, err := m.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := m.store.UpdatePassword(ctx, cred.ID, digest); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	m.appendAudit(ctx, cred.ID, cred.Username, "", audit.EventTypePasswordChanged, "")
	if m.sessionManager != nil {
		m.sessionManager.RevokeAllForUser(ctx, cred.ID)
	}
	return nil
}

// SetRole changes the account role. The permission cache entry is
// invalidated before the change is acknowledged.
func (m *Manager) SetRole(ctx context.Context, userID uint, role string) error {
	cred, err := m.store.FindByID(ctx, userID)
	if errors.Is(err, accounts.ErrNotFound) {
		return accounts.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	cred.Role = role
	if err := m.store.Persist(ctx, cred); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if m.permCache != nil {
		if err := m.permCache.Invalidate(ctx, userID); err != nil {
			return err
		}
	}
	m.appendAudit(ctx, cred.ID, cred.Username, "", audit.EventTypePermissionsChanged, "role set to "+role)
	return nil
}

func (m *Manager) appendAudit(ctx context.Context, userID uint, username, sourceIP, eventType, reason string) {
	if m.auditLog == nil {
		return
	}
	m.auditLog.Append(ctx, audit.Event{
		UserID:    userID,
		Username:  username,
		EventType: eventType,
		Reason:    reason,
		IP:        sourceIP,
	})
}
