package manager

import "sync"

// keyedMutex serializes operations per key while letting different keys
// proceed concurrently. Entries are reference-counted and removed once the
// last waiter releases, so the map does not grow with the username space.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu      sync.Mutex
	holders int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: map[string]*lockEntry{}}
}

// lock blocks until the key is available and returns the release function.
// Waiters acquire in arrival order under contention (sync.Mutex hands the
// lock to the longest waiter in starvation mode).
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.holders++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.holders--
		if e.holders == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
