// Package manager implements the account lifecycle: it orchestrates the
// account authority, the tracking store and the expiry policy into safe,
// ordered transitions.
//
// Ordering contract: every transition performs the authority mutation first
// and commits the tracking store only after the authority reported success.
// A failed authority call therefore never advances the tracked state
// ("fail closed"). The one unavoidable inconsistency window is a store
// commit failure after a successful authority mutation; it is surfaced as
// common.ErrStoreIO so the operator knows reconciliation may be needed.
//
// Operations on the same username are totally ordered; different usernames
// proceed concurrently.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/authority"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/expiry"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
	"github.com/dmitrijs2005/accountkeeper/internal/secret"
	"github.com/dmitrijs2005/accountkeeper/internal/store"
)

// timeNow is a seam for tests.
var timeNow = time.Now

type Manager struct {
	authority authority.Authority
	store     store.Store
	logger    logging.Logger
	locks     *keyedMutex
}

func New(a authority.Authority, s store.Store, l logging.Logger) *Manager {
	return &Manager{
		authority: a,
		store:     s,
		logger:    l.With("module", "manager"),
		locks:     newKeyedMutex(),
	}
}

// validateUsername rejects obviously malformed names before any side
// effect. The authority's own tooling enforces the rest.
func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", common.ErrValidation)
	}
	if strings.ContainsAny(username, " \t\n:") {
		return fmt.Errorf("%w: invalid username %q", common.ErrValidation, username)
	}
	return nil
}

// mutationContext detaches the context from caller cancellation: once an
// authority mutation has been issued it must be allowed to finish (or time
// out at the adapter), and its store commit must follow, so a disconnecting
// caller cannot leave the two sides inconsistent.
func mutationContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Create provisions a new account: authority create, credential set, expiry
// set, then tracking insert. A non-positive day count means no expiry. An
// empty secret is replaced by a generated one.
func (m *Manager) Create(ctx context.Context, username string, days int, secretValue string) (*models.Account, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	unlock := m.locks.lock(username)
	defer unlock()

	_, err := m.store.Get(ctx, username)
	if err == nil {
		return nil, fmt.Errorf("user %s is already tracked: %w", username, common.ErrAlreadyExists)
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	exists, err := m.authority.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("user %s already exists: %w", username, common.ErrAlreadyExists)
	}

	if secretValue == "" {
		secretValue, err = secret.Generate(secret.DefaultLength)
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}

	mctx := mutationContext(ctx)
	if err := m.authority.CreateAccount(mctx, username); err != nil {
		return nil, err
	}
	if err := m.authority.SetSecret(mctx, username, secretValue); err != nil {
		return nil, err
	}
	exp := expiry.Initial(days)
	if err := m.authority.SetExpiry(mctx, username, exp); err != nil {
		return nil, err
	}

	record := &models.Account{
		Username:  username,
		Secret:    secretValue,
		Expiry:    exp,
		Status:    models.StatusActive,
		CreatedAt: timeNow().UTC(),
	}
	if err := m.store.Insert(mctx, record); err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "account created", "username", username, "expiry", exp.String())
	return record, nil
}

// Renew extends the tracked expiry by days and reactivates the account.
func (m *Manager) Renew(ctx context.Context, username string, days int) (*models.Account, error) {
	return m.transition(ctx, username, "renewed", func(mctx context.Context, record *models.Account) error {
		newExpiry := expiry.Renewal(record.Expiry, days)
		if err := m.authority.SetExpiry(mctx, username, newExpiry); err != nil {
			return err
		}
		record.Expiry = newExpiry
		record.Status = models.StatusActive
		return nil
	})
}

// Lock disables the account at the authority and marks the record locked.
func (m *Manager) Lock(ctx context.Context, username string) (*models.Account, error) {
	return m.transition(ctx, username, "locked", func(mctx context.Context, record *models.Account) error {
		if err := m.authority.Lock(mctx, username); err != nil {
			return err
		}
		record.Status = models.StatusLocked
		return nil
	})
}

// Unlock re-enables the account and marks the record active.
func (m *Manager) Unlock(ctx context.Context, username string) (*models.Account, error) {
	return m.transition(ctx, username, "unlocked", func(mctx context.Context, record *models.Account) error {
		if err := m.authority.Unlock(mctx, username); err != nil {
			return err
		}
		record.Status = models.StatusActive
		return nil
	})
}

// Expire forces the authority-side expiry to yesterday, invalidating access
// through the authority's own expiry check independently of lock state.
func (m *Manager) Expire(ctx context.Context, username string) (*models.Account, error) {
	return m.transition(ctx, username, "expired", func(mctx context.Context, record *models.Account) error {
		if err := m.authority.SetExpiry(mctx, username, expiry.Forced()); err != nil {
			return err
		}
		record.Status = models.StatusExpired
		return nil
	})
}

// transition runs the common tracked-account update sequence: load record,
// authority mutation, store replace.
func (m *Manager) transition(ctx context.Context, username, action string, mutate func(context.Context, *models.Account) error) (*models.Account, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	unlock := m.locks.lock(username)
	defer unlock()

	record, err := m.store.Get(ctx, username)
	if err != nil {
		return nil, err
	}

	mctx := mutationContext(ctx)
	if err := mutate(mctx, record); err != nil {
		return nil, err
	}
	if err := m.store.Replace(mctx, record); err != nil {
		return nil, err
	}

	m.logger.Info(ctx, "account "+action, "username", username, "status", string(record.Status))
	return record, nil
}

// Delete removes the account from the authority and then from tracking.
// An untracked account that still exists at the authority is deleted too;
// this is the one place drift is actively cleaned up.
func (m *Manager) Delete(ctx context.Context, username string) error {
	if err := validateUsername(username); err != nil {
		return err
	}

	unlock := m.locks.lock(username)
	defer unlock()

	_, trackedErr := m.store.Get(ctx, username)
	tracked := trackedErr == nil
	if trackedErr != nil && !errors.Is(trackedErr, common.ErrNotFound) {
		return trackedErr
	}

	if !tracked {
		exists, err := m.authority.Exists(ctx, username)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %s: %w", username, common.ErrNotFound)
		}
	}

	mctx := mutationContext(ctx)
	if err := m.authority.DeleteAccount(mctx, username, true); err != nil {
		return err
	}
	if tracked {
		if err := m.store.Delete(mctx, username); err != nil {
			return err
		}
	}

	m.logger.Info(ctx, "account deleted", "username", username, "tracked", tracked)
	return nil
}

// List returns a snapshot of all tracked records.
func (m *Manager) List(ctx context.Context) ([]models.Account, error) {
	return m.store.ListAll(ctx)
}

// Describe returns the tracked record together with the authority-native
// status report.
func (m *Manager) Describe(ctx context.Context, username string) (*models.Account, string, error) {
	if err := validateUsername(username); err != nil {
		return nil, "", err
	}

	record, err := m.store.Get(ctx, username)
	if err != nil {
		return nil, "", err
	}

	report, err := m.authority.StatusReport(ctx, username)
	if err != nil {
		return nil, "", err
	}
	return record, report, nil
}
