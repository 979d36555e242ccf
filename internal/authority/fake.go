package authority

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

// FakeAccount is the authority-side state the Fake tracks per username.
type FakeAccount struct {
	Secret string
	Expiry models.Expiry
	Locked bool
}

// Fake is an in-memory Authority for tests. Individual operations can be
// made to fail by setting the corresponding Fail* error; state is only
// mutated on success, matching the real backend.
type Fake struct {
	mu       sync.Mutex
	Accounts map[string]*FakeAccount

	FailCreate    error
	FailSetSecret error
	FailSetExpiry error
	FailLock      error
	FailUnlock    error
	FailDelete    error
	FailReport    error

	// Calls records operation names in invocation order.
	Calls []string
}

func NewFake() *Fake {
	return &Fake{Accounts: map[string]*FakeAccount{}}
}

func (f *Fake) record(op, username string) {
	f.Calls = append(f.Calls, op+" "+username)
}

func (f *Fake) Exists(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exists", username)
	_, ok := f.Accounts[username]
	return ok, nil
}

func (f *Fake) CreateAccount(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create", username)
	if f.FailCreate != nil {
		return f.FailCreate
	}
	if _, ok := f.Accounts[username]; ok {
		return fmt.Errorf("create account: %w", common.ErrAlreadyExists)
	}
	f.Accounts[username] = &FakeAccount{Expiry: models.Never()}
	return nil
}

func (f *Fake) SetSecret(ctx context.Context, username, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("setsecret", username)
	if f.FailSetSecret != nil {
		return f.FailSetSecret
	}
	a, ok := f.Accounts[username]
	if !ok {
		return fmt.Errorf("set secret: %w", common.ErrNotFound)
	}
	a.Secret = secret
	return nil
}

func (f *Fake) SetExpiry(ctx context.Context, username string, exp models.Expiry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("setexpiry", username)
	if f.FailSetExpiry != nil {
		return f.FailSetExpiry
	}
	a, ok := f.Accounts[username]
	if !ok {
		return fmt.Errorf("set expiry: %w", common.ErrNotFound)
	}
	a.Expiry = exp
	return nil
}

func (f *Fake) Lock(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("lock", username)
	if f.FailLock != nil {
		return f.FailLock
	}
	a, ok := f.Accounts[username]
	if !ok {
		return fmt.Errorf("lock: %w", common.ErrNotFound)
	}
	a.Locked = true
	return nil
}

func (f *Fake) Unlock(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unlock", username)
	if f.FailUnlock != nil {
		return f.FailUnlock
	}
	a, ok := f.Accounts[username]
	if !ok {
		return fmt.Errorf("unlock: %w", common.ErrNotFound)
	}
	a.Locked = false
	return nil
}

func (f *Fake) DeleteAccount(ctx context.Context, username string, purge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete", username)
	if f.FailDelete != nil {
		return f.FailDelete
	}
	if _, ok := f.Accounts[username]; !ok {
		return fmt.Errorf("delete account: %w", common.ErrNotFound)
	}
	delete(f.Accounts, username)
	return nil
}

func (f *Fake) StatusReport(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("report", username)
	if f.FailReport != nil {
		return "", f.FailReport
	}
	a, ok := f.Accounts[username]
	if !ok {
		return "", fmt.Errorf("status report: %w", common.ErrNotFound)
	}
	state := "unlocked"
	if a.Locked {
		state = "locked"
	}
	return fmt.Sprintf("Account expires: %s\nPassword: %s\n", a.Expiry, state), nil
}
