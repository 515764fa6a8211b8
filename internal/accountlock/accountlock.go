// Package accountlock serializes mutations per account without blocking
// unrelated accounts. Every check-then-charge and read-then-transition
// sequence on an account record runs under that account's lock.
package accountlock

import (
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

func New() *Registry {
	return &Registry{locks: make(map[uuid.UUID]*entry)}
}

// Lock acquires the mutex for the given account, creating it on first use,
// and returns the matching unlock func. Entries are refcounted and removed
// once the last holder unlocks, so the registry stays proportional to the
// accounts currently in flight rather than every account ever seen.
func (r *Registry) Lock(id uuid.UUID) func() {
	r.mu.Lock()
	e, ok := r.locks[id]
	if !ok {
		e = &entry{}
		r.locks[id] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}
