// Package store defines the durable tracking store contract: a keyed
// collection of account records with atomic, all-or-nothing commits.
// Implementations live in the file and postgres subpackages.
package store

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

// Store is a durable mapping from username to account record. Every
// mutating call durably commits before returning success. Missing keys are
// reported as common.ErrNotFound, duplicate inserts as
// common.ErrAlreadyExists; commit failures wrap common.ErrStoreIO.
type Store interface {
	// Insert adds a new record, failing if the username is already tracked.
	Insert(ctx context.Context, account *models.Account) error

	// Get returns the record for the username.
	Get(ctx context.Context, username string) (*models.Account, error)

	// Replace overwrites an existing record, failing if it is absent.
	Replace(ctx context.Context, account *models.Account) error

	// Delete removes the record, failing if it is absent.
	Delete(ctx context.Context, username string) error

	// ListAll returns a snapshot of all records. No ordering is guaranteed
	// to callers; implementations keep most-recent-insert-last.
	ListAll(ctx context.Context) ([]models.Account, error)
}
