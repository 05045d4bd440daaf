package service

import (
	"context"
	"sync"
)

// Locker serializes the ledger critical section per account key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// keyedMutex hands out one mutex per key for in-process serialization.
// Entries are reference counted so idle keys do not accumulate.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() Locker {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}, nil
}
