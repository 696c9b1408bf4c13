package sessions

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(config Config) (*Manager, *time.Time) {
	now := time.Now()
	manager := NewManager(config, nil)
	manager.nowFunc = func() time.Time { return now }
	return manager, &now
}

func mustCreate(t *testing.T, manager *Manager, userID uint, username string) string {
	t.Helper()
	id, err := manager.Create(context.Background(), CreateRequest{
		UserID:      userID,
		Username:    username,
		ClientIP:    "10.0.0.1",
		ClientAgent: "erp-client/1.0",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return id
}

func TestCreateAndValidate(t *testing.T) {
	manager, _ := newTestManager(Config{})
	ctx := context.Background()

	id := mustCreate(t, manager, 1, "alice")
	if len(id) != 64 {
		t.Errorf("session id length = %d, want 64 hex chars", len(id))
	}

	info, err := manager.Validate(ctx, id, "10.0.0.1", "erp-client/1.0")
	if err != nil {
		t.Fatal(err)
	}
	if info.Username != "alice" || !info.Active {
		t.Errorf("info = %+v", info)
	}

	if _, err := manager.Validate(ctx, "deadbeef", "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown id: err = %v, want ErrInvalid", err)
	}
}

func TestCallerSuppliedIDRejected(t *testing.T) {
	manager, _ := newTestManager(Config{})
	_, err := manager.Create(context.Background(), CreateRequest{
		UserID:      1,
		Username:    "alice",
		RequestedID: "attacker-chosen",
	})
	if !errors.Is(err, ErrFixationRejected) {
		t.Errorf("err = %v, want ErrFixationRejected", err)
	}
}

func TestSlidingExpiration(t *testing.T) {
	manager, now := newTestManager(Config{IdleTimeout: 30 * time.Minute})
	ctx := context.Background()

	id := mustCreate(t, manager, 1, "alice")

	// repeated validation within the idle window keeps the session alive
	// well past creation + timeout
	for i := 0; i < 4; i++ {
		*now = now.Add(20 * time.Minute)
		if _, err := manager.Validate(ctx, id, "", ""); err != nil {
			t.Fatalf("validation %d failed: %v", i, err)
		}
	}

	// a gap beyond the idle window expires it
	*now = now.Add(31 * time.Minute)
	if _, err := manager.Validate(ctx, id, "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("expired session: err = %v, want ErrInvalid", err)
	}
	// and it stays expired even if activity resumes
	*now = now.Add(time.Minute)
	if _, err := manager.Validate(ctx, id, "", ""); !errors.Is(err, ErrInvalid) {
		t.Error("expired session validated again")
	}
}

func TestRevokeIdempotent(t *testing.T) {
	manager, _ := newTestManager(Config{})
	ctx := context.Background()

	id := mustCreate(t, manager, 1, "alice")
	manager.Revoke(ctx, id)
	manager.Revoke(ctx, id) // second revoke is a no-op

	if _, err := manager.Validate(ctx, id, "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("revoked session: err = %v, want ErrInvalid", err)
	}
	if got := manager.ListActiveForUser(1); len(got) != 0 {
		t.Errorf("active sessions after revoke = %d, want 0", len(got))
	}
}

func TestConcurrentSessionLimit(t *testing.T) {
	manager, now := newTestManager(Config{MaxPerUser: 3})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, mustCreate(t, manager, 1, "alice"))
		*now = now.Add(time.Second)
	}
	newest := mustCreate(t, manager, 1, "alice")

	active := manager.ListActiveForUser(1)
	if len(active) != 3 {
		t.Fatalf("active sessions = %d, want 3", len(active))
	}
	if active[len(active)-1].ID != newest {
		t.Error("newest session missing after eviction")
	}
	// the oldest session was evicted
	if _, err := manager.Validate(ctx, ids[0], "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("oldest session still valid: err = %v", err)
	}
	if _, err := manager.Validate(ctx, ids[1], "", ""); err != nil {
		t.Errorf("second-oldest session invalid: %v", err)
	}
}

func TestRevokeAllAndOthers(t *testing.T) {
	manager, _ := newTestManager(Config{MaxPerUser: 5})
	ctx := context.Background()

	keep := mustCreate(t, manager, 1, "alice")
	mustCreate(t, manager, 1, "alice")
	mustCreate(t, manager, 1, "alice")
	other := mustCreate(t, manager, 2, "bob")

	if n := manager.RevokeOthersForUser(ctx, 1, keep); n != 2 {
		t.Errorf("revoked %d sessions, want 2", n)
	}
	if _, err := manager.Validate(ctx, keep, "", ""); err != nil {
		t.Errorf("kept session invalid: %v", err)
	}
	if _, err := manager.Validate(ctx, other, "", ""); err != nil {
		t.Errorf("other user's session invalid: %v", err)
	}

	if n := manager.RevokeAllForUser(ctx, 1); n != 1 {
		t.Errorf("revoked %d sessions, want 1", n)
	}
	if got := manager.ListActiveForUser(1); len(got) != 0 {
		t.Errorf("active sessions = %d, want 0", len(got))
	}
}

func TestBindingMismatchSoftFlag(t *testing.T) {
	manager, _ := newTestManager(Config{})
	ctx := context.Background()

	id := mustCreate(t, manager, 1, "alice")
	info, err := manager.Validate(ctx, id, "10.9.9.9", "erp-client/1.0")
	if err != nil {
		t.Fatalf("soft binding mode rejected the session: %v", err)
	}
	if !info.Flagged {
		t.Error("mismatched session not flagged")
	}
	// session continues to work afterwards
	if _, err := manager.Validate(ctx, id, "10.0.0.1", "erp-client/1.0"); err != nil {
		t.Errorf("flagged session rejected: %v", err)
	}
}

func TestBindingMismatchStrict(t *testing.T) {
	manager, _ := newTestManager(Config{StrictBinding: true})
	ctx := context.Background()

	id := mustCreate(t, manager, 1, "alice")
	if _, err := manager.Validate(ctx, id, "10.9.9.9", "erp-client/1.0"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("strict binding mismatch: err = %v, want ErrInvalid", err)
	}
	// the session was revoked, the original client loses it too
	if _, err := manager.Validate(ctx, id, "10.0.0.1", "erp-client/1.0"); !errors.Is(err, ErrInvalid) {
		t.Error("session survived a strict binding violation")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	manager, now := newTestManager(Config{IdleTimeout: time.Minute})
	ctx := context.Background()

	id := mustCreate(t, manager, 1, "alice")
	*now = now.Add(2 * time.Minute)
	manager.Sweep(ctx)

	manager.mu.RLock()
	_, exists := manager.sessions[id]
	manager.mu.RUnlock()
	if exists {
		t.Error("expired session not removed by sweep")
	}
	if _, err := manager.Validate(ctx, id, "", ""); !errors.Is(err, ErrInvalid) {
		t.Errorf("swept session: err = %v, want ErrInvalid", err)
	}
}
