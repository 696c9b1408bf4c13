package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glassworks/authcore/internal/accounts"
	"github.com/glassworks/authcore/internal/audit"
	"github.com/glassworks/authcore/internal/lockout"
	"github.com/glassworks/authcore/internal/password"
	"github.com/glassworks/authcore/internal/permissions"
	"github.com/glassworks/authcore/internal/sessions"
	"github.com/glassworks/authcore/model"
)

func newTestCore(t *testing.T) (*Core, *accounts.MemoryCredentialStore) {
	t.Helper()
	store := accounts.NewMemoryCredentialStore()
	c, err := New(Options{
		Store:         store,
		LockoutPolicy: lockout.Policy{MaxAttempts: 3, Duration: 15 * time.Minute},
		Session:       sessions.Config{IdleTimeout: 30 * time.Minute, MaxPerUser: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, store
}

func provision(t *testing.T, store *accounts.MemoryCredentialStore, username, plaintext, role string) *model.Credential {
	t.Helper()
	digest, err := password.NewHasher().Hash(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	cred := &model.Credential{
		Username:     username,
		PasswordHash: digest,
		Role:         role,
		Status:       model.StatusActive,
	}
	if err := store.Persist(context.Background(), cred); err != nil {
		t.Fatal(err)
	}
	return cred
}

func TestLoginLogoutFlow(t *testing.T) {
	c, store := newTestCore(t)
	cred := provision(t, store, "alice", "Str0ng#Pass99", model.RoleSupervisor)
	ctx := context.Background()

	result, sessionID, err := c.Login(ctx, "alice", "Str0ng#Pass99", "10.0.0.1", "erp-client/1.0")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || sessionID == "" {
		t.Fatalf("login result = %+v, session = %q", result, sessionID)
	}

	info, err := c.Sessions.Validate(ctx, sessionID, "10.0.0.1", "erp-client/1.0")
	if err != nil {
		t.Fatal(err)
	}
	if info.UserID != cred.ID {
		t.Errorf("session user = %d, want %d", info.UserID, cred.ID)
	}

	perms, err := c.Permissions.Lookup(ctx, cred.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !permissions.Has(perms, permissions.PermPurchasesManage) {
		t.Errorf("supervisor permissions = %v", perms)
	}

	c.Logout(ctx, sessionID)
	if _, err := c.Sessions.Validate(ctx, sessionID, "", ""); !errors.Is(err, sessions.ErrInvalid) {
		t.Errorf("session after logout: err = %v", err)
	}
	if got := c.Audit.Query(audit.Filter{EventType: audit.EventTypeLogout}); len(got) != 1 {
		t.Errorf("logout events = %d, want 1", len(got))
	}
}

func TestFailedLoginMintsNoSession(t *testing.T) {
	c, store := newTestCore(t)
	provision(t, store, "alice", "Str0ng#Pass99", model.RoleUser)

	result, sessionID, err := c.Login(context.Background(), "alice", "wrong", "10.0.0.1", "erp-client/1.0")
	if err != nil {
		t.Fatal(err)
	}
	if result.Success || sessionID != "" {
		t.Errorf("result = %+v, session = %q", result, sessionID)
	}
	if got := c.Sessions.ListActiveForUser(1); len(got) != 0 {
		t.Errorf("sessions after failed login = %d", len(got))
	}
}

func TestAccountLockRevokesSessions(t *testing.T) {
	c, store := newTestCore(t)
	cred := provision(t, store, "alice", "Str0ng#Pass99", model.RoleUser)
	ctx := context.Background()

	_, sessionID, err := c.Login(ctx, "alice", "Str0ng#Pass99", "10.0.0.1", "erp-client/1.0")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := c.Login(ctx, "alice", "wrong", "10.0.0.1", "erp-client/1.0"); err != nil {
			t.Fatal(err)
		}
	}

	// locking the account killed the live session
	if _, err := c.Sessions.Validate(ctx, sessionID, "", ""); !errors.Is(err, sessions.ErrInvalid) {
		t.Errorf("session survived account lock: err = %v", err)
	}
	if got := c.Sessions.ListActiveForUser(cred.ID); len(got) != 0 {
		t.Errorf("active sessions after lock = %d", len(got))
	}
}

func TestRoleChangeRefreshesPermissions(t *testing.T) {
	c, store := newTestCore(t)
	cred := provision(t, store, "alice", "Str0ng#Pass99", model.RoleGuest)
	ctx := context.Background()

	perms, err := c.Permissions.Lookup(ctx, cred.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 0 {
		t.Fatalf("guest permissions = %v", perms)
	}

	if err := c.Auth.SetRole(ctx, cred.ID, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	perms, err = c.Permissions.Lookup(ctx, cred.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !permissions.Has(perms, permissions.PermUsersManage) {
		t.Errorf("permissions after promotion = %v (stale cache)", perms)
	}
}
