// Package lock provides per-key mutual exclusion.
package lock

import (
	"context"
	"sync"
)

// Keyed serializes tasks that share a key. Tasks with different keys run
// concurrently. A waiter gives up when its context is done.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewKeyed creates an empty lock manager.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[string]*entry)}
}

// RunExclusive runs task while holding the lock for key. The lock is released
// when task returns, whether it succeeded or not. The task's error is returned
// unchanged; a context error is returned if ctx ends before the lock is acquired.
func (k *Keyed) RunExclusive(ctx context.Context, key string, task func(ctx context.Context) error) error {
	e := k.acquireRef(key)
	defer k.releaseRef(key, e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()

	return task(ctx)
}

// Held reports how many callers are holding or waiting on key.
func (k *Keyed) Held(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.entries[key]; ok {
		return e.refs
	}
	return 0
}

func (k *Keyed) acquireRef(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) releaseRef(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}
