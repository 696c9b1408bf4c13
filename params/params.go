package params

import "time"

const (
	MaxLoginAttempts       = 5                // failed logins before the account locks
	LockoutDuration        = 15 * time.Minute // how long a locked account stays locked
	SessionIdleTimeout     = 30 * time.Minute // sliding idle timeout for sessions
	MaxSessionsPerUser     = 3                // concurrent sessions per user; oldest evicted first
	SessionSweepInterval   = 1 * time.Minute  // background sweep of expired sessions
	SessionIDLength        = 32               // random bytes per session id
	PermissionCacheTTL     = 5 * time.Minute  // time to live of cached permission sets
	PermissionCachePrefix  = "p:"             // key prefix for permission cache entries
	AuditLogMaxEvents      = 10000            // in-memory audit ring capacity
	PBKDF2Iterations       = 120000           // work factor for the v1 digest format
	PBKDF2SaltLength       = 16               // salt bytes per digest
	PBKDF2KeyLength        = 32               // derived key bytes
	PasswordMinLength      = 8                // minimum password length accepted by the policy
	HealthCheckServerAddr  = ":3001"          // health check server address
	CredentialStoreTimeout = 5 * time.Second  // per-call deadline for credential store operations
)
