package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glassworks/authcore/internal/audit"
	"github.com/glassworks/authcore/params"
)

var (
	// ErrInvalid covers unknown, revoked and expired sessions alike so a
	// probing caller cannot tell which it hit.
	ErrInvalid = errors.New("session invalid")
	// ErrFixationRejected is returned when a caller tries to supply its
	// own session id.
	ErrFixationRejected = errors.New("caller-supplied session id rejected")
)

// SessionInfo is a read-only snapshot of a session.
type SessionInfo struct {
	ID           string
	UserID       uint
	Username     string
	ClientIP     string
	ClientAgent  string
	CreatedAt    time.Time
	LastActivity time.Time
	Active       bool
	Flagged      bool
}

type session struct {
	SessionInfo
}

type Config struct {
	IdleTimeout   time.Duration // sliding expiration window
	MaxPerUser    int           // concurrent sessions per user, oldest evicted
	StrictBinding bool          // hard-fail on IP/agent mismatch instead of flagging
	SweepInterval time.Duration // background sweep period
}

func (c *Config) sanitize() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = params.SessionIdleTimeout
	}
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = params.MaxSessionsPerUser
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = params.SessionSweepInterval
	}
}

// Manager owns the in-memory session table. All methods are safe for
// concurrent use. Sessions expire lazily on access and are additionally
// reaped by the background sweeper.
type Manager struct {
	config   Config
	auditLog *audit.Log // optional

	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[uint]map[string]struct{}

	nowFunc  func() time.Time
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewManager creates a session manager. auditLog may be nil when no audit
// trail is wired.
func NewManager(config Config, auditLog *audit.Log) *Manager {
	config.sanitize()
	return &Manager{
		config:   config,
		auditLog: auditLog,
		sessions: make(map[string]*session),
		byUser:   make(map[uint]map[string]struct{}),
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func generateSessionID() string {
	b := make([]byte, params.SessionIDLength)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Could not generate session id", "error", err)
		return ""
	}
	return hex.EncodeToString(b)
}

// CreateRequest carries the client attributes recorded at session creation.
// RequestedID must be empty: session ids are always server-issued.
type CreateRequest struct {
	UserID      uint
	Username    string
	ClientIP    string
	ClientAgent string
	RequestedID string
}

// Create mints a new session. When the user is at the concurrent-session
// limit the oldest sessions (by creation time) are revoked first.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (string, error) {
	if req.RequestedID != "" {
		return "", ErrFixationRejected
	}
	id := generateSessionID()
	if id == "" {
		return "", errors.New("session id generation failed")
	}

	now := m.nowFunc()
	m.mu.Lock()
	m.evictOldestLocked(ctx, req.UserID, m.config.MaxPerUser-1)
	sess := &session{SessionInfo{
		ID:           id,
		UserID:       req.UserID,
		Username:     req.Username,
		ClientIP:     req.ClientIP,
		ClientAgent:  req.ClientAgent,
		CreatedAt:    now,
		LastActivity: now,
		Active:       true,
	}}
	m.sessions[id] = sess
	userSessions, ok := m.byUser[req.UserID]
	if !ok {
		userSessions = make(map[string]struct{})
		m.byUser[req.UserID] = userSessions
	}
	userSessions[id] = struct{}{}
	m.mu.Unlock()
	return id, nil
}

// Validate checks a session and slides its activity window forward.
// clientIP and clientAgent may be empty to skip the binding check.
func (m *Manager) Validate(ctx context.Context, id, clientIP, clientAgent string) (*SessionInfo, error) {
	now := m.nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok || !sess.Active {
		return nil, ErrInvalid
	}
	if now.Sub(sess.LastActivity) > m.config.IdleTimeout {
		m.deactivateLocked(sess)
		m.appendAudit(ctx, sess, audit.EventTypeSessionExpired, "idle timeout")
		return nil, ErrInvalid
	}

	mismatch := (clientIP != "" && sess.ClientIP != "" && clientIP != sess.ClientIP) ||
		(clientAgent != "" && sess.ClientAgent != "" && clientAgent != sess.ClientAgent)
	if mismatch {
		if m.config.StrictBinding {
			m.deactivateLocked(sess)
			m.appendAudit(ctx, sess, audit.EventTypeSessionFlagged, "client binding mismatch, revoked")
			return nil, ErrInvalid
		}
		if !sess.Flagged {
			sess.Flagged = true
			m.appendAudit(ctx, sess, audit.EventTypeSessionFlagged, "client binding mismatch")
		}
	}

	sess.LastActivity = now
	info := sess.SessionInfo
	return &info, nil
}

// Revoke deactivates a session. Revoking an unknown or already revoked
// session is a no-op.
func (m *Manager) Revoke(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || !sess.Active {
		return
	}
	m.deactivateLocked(sess)
	m.appendAudit(ctx, sess, audit.EventTypeLogout, "")
}

// RevokeAllForUser deactivates every active session of a user, e.g. when
// the account gets locked or its password changes.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uint) int {
	return m.revokeUserSessions(ctx, userID, "")
}

// RevokeOthersForUser deactivates all of a user's sessions except keepID.
func (m *Manager) RevokeOthersForUser(ctx context.Context, userID uint, keepID string) int {
	return m.revokeUserSessions(ctx, userID, keepID)
}

func (m *Manager) revokeUserSessions(ctx context.Context, userID uint, keepID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	revoked := 0
	for id := range m.byUser[userID] {
		if id == keepID {
			continue
		}
		sess := m.sessions[id]
		if sess == nil || !sess.Active {
			continue
		}
		m.deactivateLocked(sess)
		m.appendAudit(ctx, sess, audit.EventTypeLogout, "revoked")
		revoked++
	}
	return revoked
}

// ListActiveForUser returns snapshots of the user's active sessions,
// oldest first.
func (m *Manager) ListActiveForUser(userID uint) []SessionInfo {
	now := m.nowFunc()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var infos []SessionInfo
	for id := range m.byUser[userID] {
		sess := m.sessions[id]
		if sess == nil || !sess.Active {
			continue
		}
		if now.Sub(sess.LastActivity) > m.config.IdleTimeout {
			continue
		}
		infos = append(infos, sess.SessionInfo)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Start launches the background sweeper. Stop terminates it and waits.
func (m *Manager) Start() {
	m.started = true
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep(context.Background())
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	<-m.done
}

// Sweep expires idle sessions and drops deactivated entries from the table.
func (m *Manager) Sweep(ctx context.Context) {
	now := m.nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.Active && now.Sub(sess.LastActivity) > m.config.IdleTimeout {
			m.deactivateLocked(sess)
			m.appendAudit(ctx, sess, audit.EventTypeSessionExpired, "idle timeout")
		}
		if !sess.Active {
			delete(m.sessions, id)
		}
	}
}

// evictOldestLocked trims a user's active sessions down to limit,
// oldest created first.
func (m *Manager) evictOldestLocked(ctx context.Context, userID uint, limit int) {
	var active []*session
	for id := range m.byUser[userID] {
		if sess := m.sessions[id]; sess != nil && sess.Active {
			active = append(active, sess)
		}
	}
	if len(active) <= limit {
		return
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	for _, sess := range active[:len(active)-limit] {
		m.deactivateLocked(sess)
		m.appendAudit(ctx, sess, audit.EventTypeLogout, "concurrent session limit")
	}
}

func (m *Manager) deactivateLocked(sess *session) {
	sess.Active = false
	if userSessions, ok := m.byUser[sess.UserID]; ok {
		delete(userSessions, sess.ID)
		if len(userSessions) == 0 {
			delete(m.byUser, sess.UserID)
		}
	}
}

func (m *Manager) appendAudit(ctx context.Context, sess *session, eventType, reason string) {
	if m.auditLog == nil {
		return
	}
	m.auditLog.Append(ctx, audit.Event{
		UserID:    sess.UserID,
		Username:  sess.Username,
		EventType: eventType,
		Reason:    reason,
		IP:        sess.ClientIP,
		UserAgent: sess.ClientAgent,
		Detail:    map[string]string{"session_id": sess.ID},
	})
}
