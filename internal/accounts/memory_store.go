package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/glassworks/authcore/model"
)

// MemoryCredentialStore is a process-local CredentialStore for tests and
// embedded single-user deployments.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	byID  map[uint]*model.Credential
	names map[string]uint // lowercase username -> id
	mails map[string]uint // lowercase email -> id
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:  make(map[uint]*model.Credential),
		names: make(map[string]uint),
		mails: make(map[string]uint),
	}
}

func (s *MemoryCredentialStore) FindByID(ctx context.Context, id uint) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(id), nil
}

func (s *MemoryCredentialStore) FindByUsername(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.names[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(id), nil
}

func (s *MemoryCredentialStore) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.mails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(id), nil
}

func (s *MemoryCredentialStore) Persist(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred.ID == 0 {
		cred.ID = model.GenerateID()
	}
	nameKey := strings.ToLower(cred.Username)
	if id, taken := s.names[nameKey]; taken && id != cred.ID {
		return ErrUsernameTaken
	}
	if cred.Email != "" {
		mailKey := strings.ToLower(cred.Email)
		if id, taken := s.mails[mailKey]; taken && id != cred.ID {
			return ErrEmailRegistered
		}
		s.mails[mailKey] = cred.ID
	}
	if prev, ok := s.byID[cred.ID]; ok {
		delete(s.names, strings.ToLower(prev.Username))
		if prev.Email != "" {
			delete(s.mails, strings.ToLower(prev.Email))
		}
		if cred.Email != "" {
			s.mails[strings.ToLower(cred.Email)] = cred.ID
		}
	}
	stored := *cred
	s.byID[cred.ID] = &stored
	s.names[nameKey] = cred.ID
	return nil
}

func (s *MemoryCredentialStore) UsernameExists(ctx context.Context, username string, excludeID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.names[strings.ToLower(username)]
	return ok && id != excludeID, nil
}

func (s *MemoryCredentialStore) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.mails[strings.ToLower(email)]
	return ok && id != excludeID, nil
}

func (s *MemoryCredentialStore) UpdateLoginState(ctx context.Context, id uint, version uint64, state LoginState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if cred.Version != version {
		return ErrVersionConflict
	}
	cred.FailedAttempts = state.FailedAttempts
	cred.LockedUntil = state.LockedUntil
	if state.LastLogin != nil {
		cred.LastLogin = state.LastLogin
	}
	cred.Version++
	return nil
}

func (s *MemoryCredentialStore) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	cred.PasswordHash = passwordHash
	return nil
}

func (s *MemoryCredentialStore) snapshot(id uint) *model.Credential {
	copied := *s.byID[id]
	return &copied
}
