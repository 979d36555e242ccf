// Package authority defines the capability boundary to the external account
// system (the host's user database) and provides two implementations: a
// shell-driven backend for production and an in-memory fake for tests.
//
// Every operation is a blocking call into an external privileged facility and
// may take hundreds of milliseconds; callers must expect bounded-timeout
// failures rather than hangs. Failures are distinguishable via the sentinel
// errors in internal/common (errors.Is).
package authority

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

// Authority is the capability set the lifecycle manager depends on.
type Authority interface {
	// Exists reports whether the username is present at the authority.
	Exists(ctx context.Context, username string) (bool, error)

	// CreateAccount creates the account. Fails with common.ErrAlreadyExists
	// if the username is taken.
	CreateAccount(ctx context.Context, username string) error

	// SetSecret replaces the account credential. The implementation must
	// never expose the secret through logs or process arguments.
	SetSecret(ctx context.Context, username, secret string) error

	// SetExpiry sets the account expiry date; a "never" expiry clears any
	// previously set date.
	SetExpiry(ctx context.Context, username string, exp models.Expiry) error

	// Lock disables credential-based access without touching expiry.
	Lock(ctx context.Context, username string) error

	// Unlock re-enables credential-based access.
	Unlock(ctx context.Context, username string) error

	// DeleteAccount removes the account; purge also removes its data.
	DeleteAccount(ctx context.Context, username string, purge bool) error

	// StatusReport returns the authority-native diagnostic dump for the
	// account, opaque to callers.
	StatusReport(ctx context.Context, username string) (string, error)
}
