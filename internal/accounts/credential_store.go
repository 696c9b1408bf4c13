package accounts

import (
	"context"
	"time"

	"github.com/glassworks/authcore/model"
)

// LoginState is the slice of a credential record mutated on every
// authentication attempt.
type LoginState struct {
	FailedAttempts int
	LockedUntil    *time.Time
	LastLogin      *time.Time
}

// CredentialStore is the durable home of credential records. Username and
// email lookups are case-insensitive. UpdateLoginState is a compare-and-swap
// keyed on the record's version so concurrent attempts on the same account
// cannot undercount failures.
type CredentialStore interface {
	FindByID(ctx context.Context, id uint) (*model.Credential, error)
	FindByUsername(ctx context.Context, username string) (*model.Credential, error)
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	Persist(ctx context.Context, cred *model.Credential) error
	UsernameExists(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
	UpdateLoginState(ctx context.Context, id uint, version uint64, state LoginState) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}
