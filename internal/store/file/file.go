// Package file implements the tracking store as a single JSON snapshot on
// disk. It replaces the unescaped comma-delimited file the original system
// used: records with delimiters in usernames or secrets cannot corrupt the
// format.
//
// Commit protocol: the whole snapshot is marshalled, written to a temporary
// file in the same directory, fsynced and renamed over the live path. A
// reader therefore never observes a half-written snapshot, including across
// a crash. A single commit mutex makes this store the sole writer of its
// backing medium.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

type snapshot struct {
	Accounts []models.Account `json:"accounts"`
}

// Store is a file-snapshot implementation of store.Store.
type Store struct {
	path string

	mu       sync.Mutex
	accounts []*models.Account
	index    map[string]int
}

// Open loads the snapshot at path, creating parent directories as needed.
// A missing file yields an empty store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: mkdir: %v", common.ErrStoreIO, err)
	}

	s := &Store{path: path, index: map[string]int{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", common.ErrStoreIO, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", common.ErrStoreIO, err)
	}
	for i := range snap.Accounts {
		a := snap.Accounts[i]
		s.index[a.Username] = len(s.accounts)
		s.accounts = append(s.accounts, &a)
	}
	return s, nil
}

// commitLocked writes the whole snapshot atomically. Callers hold s.mu.
func (s *Store) commitLocked() error {
	snap := snapshot{Accounts: make([]models.Account, 0, len(s.accounts))}
	for _, a := range s.accounts {
		snap.Accounts = append(snap.Accounts, *a)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", common.ErrStoreIO, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".accounts-*.json")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", common.ErrStoreIO, err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write snapshot: %v", common.ErrStoreIO, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename snapshot: %v", common.ErrStoreIO, err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[account.Username]; ok {
		return fmt.Errorf("insert %s: %w", account.Username, common.ErrAlreadyExists)
	}

	s.index[account.Username] = len(s.accounts)
	s.accounts = append(s.accounts, account.Clone())

	if err := s.commitLocked(); err != nil {
		// roll the in-memory state back so memory and disk stay in step
		delete(s.index, account.Username)
		s.accounts = s.accounts[:len(s.accounts)-1]
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[username]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", username, common.ErrNotFound)
	}
	return s.accounts[i].Clone(), nil
}

func (s *Store) Replace(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[account.Username]
	if !ok {
		return fmt.Errorf("replace %s: %w", account.Username, common.ErrNotFound)
	}

	prev := s.accounts[i]
	s.accounts[i] = account.Clone()

	if err := s.commitLocked(); err != nil {
		s.accounts[i] = prev
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[username]
	if !ok {
		return fmt.Errorf("delete %s: %w", username, common.ErrNotFound)
	}

	prev := s.accounts
	prevIndex := s.index

	s.accounts = append(append([]*models.Account{}, prev[:i]...), prev[i+1:]...)
	s.index = make(map[string]int, len(s.accounts))
	for j, a := range s.accounts {
		s.index[a.Username] = j
	}

	if err := s.commitLocked(); err != nil {
		s.accounts = prev
		s.index = prevIndex
		return err
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, nil
}
