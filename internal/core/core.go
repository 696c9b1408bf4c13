package core

import (
	"context"
	"time"

	"github.com/glassworks/authcore/internal/accounts"
	"github.com/glassworks/authcore/internal/audit"
	"github.com/glassworks/authcore/internal/auth"
	"github.com/glassworks/authcore/internal/lockout"
	"github.com/glassworks/authcore/internal/permissions"
	"github.com/glassworks/authcore/internal/sessions"
	"github.com/glassworks/authcore/internal/store"
)

// Options wires the collaborators of a Core. Store is required; the rest
// default to in-memory implementations. Optional dependencies are plain
// nil-able fields, never discovered at runtime.
type Options struct {
	Store         accounts.CredentialStore
	AuditRepo     audit.EventRepository // optional durable audit sink
	AuditMax      int
	CacheStorage  store.Storage // optional, defaults to process memory
	CacheTTL      time.Duration // 0 for default
	LockoutPolicy lockout.Policy
	Session       sessions.Config
}

// Core bundles the authentication, session, permission and audit state of
// the application behind one explicitly owned handle.
type Core struct {
	Auth        *auth.Manager
	Sessions    *sessions.Manager
	Permissions *permissions.Service
	Audit       *audit.Log
	store       accounts.CredentialStore
}

func New(opts Options) (*Core, error) {
	auditLog := audit.NewLog(
		audit.WithMaxEvents(opts.AuditMax),
		audit.WithRepository(opts.AuditRepo),
	)

	sessionManager := sessions.NewManager(opts.Session, auditLog)

	cacheStorage := opts.CacheStorage
	if cacheStorage == nil {
		cacheStorage = store.NewMemoryStorage()
	}
	cache := permissions.NewCache(cacheStorage, opts.CacheTTL)
	permService := permissions.NewService(cache, func(ctx context.Context, userID uint) ([]string, error) {
		cred, err := opts.Store.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return permissions.ForRole(cred.Role), nil
	})

	authManager, err := auth.NewManager(auth.ManagerConfig{
		Store:          opts.Store,
		LockoutPolicy:  opts.LockoutPolicy,
		AuditLog:       auditLog,
		SessionManager: sessionManager,
		PermCache:      permService,
	})
	if err != nil {
		return nil, err
	}

	return &Core{
		Auth:        authManager,
		Sessions:    sessionManager,
		Permissions: permService,
		Audit:       auditLog,
		store:       opts.Store,
	}, nil
}

// Login authenticates and, on success, mints a session for the client.
func (c *Core) Login(ctx context.Context, username, password, clientIP, clientAgent string) (auth.AuthResult, string, error) {
	result, err := c.Auth.Authenticate(ctx, username, password, clientIP)
	if err != nil || !result.Success {
		return result, "", err
	}
	sessionID, err := c.Sessions.Create(ctx, sessions.CreateRequest{
		UserID:      result.UserID,
		Username:    username,
		ClientIP:    clientIP,
		ClientAgent: clientAgent,
	})
	if err != nil {
		return result, "", err
	}
	return result, sessionID, nil
}

// Logout revokes the session. Unknown sessions are ignored.
func (c *Core) Logout(ctx context.Context, sessionID string) {
	c.Sessions.Revoke(ctx, sessionID)
}

// Start launches background maintenance (session sweeping).
func (c *Core) Start() {
	c.Sessions.Start()
}

// Stop halts background maintenance and waits for it to finish.
func (c *Core) Stop() {
	c.Sessions.Stop()
}
