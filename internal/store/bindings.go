// Package store holds all process-lifetime state: bindings, sessions, the
// inquiry ledger, reply slots and vote tallies. Everything is memory-resident
// and mutex-guarded; nothing survives a restart.
package store

import "sync"

// Bindings maps a publisher to the one destination they publish into.
// A new bind overwrites the old one; binds survive publish/cancel cycles.
type Bindings struct {
	mu sync.RWMutex
	m  map[int64]int64
}

func NewBindings() *Bindings {
	return &Bindings{m: make(map[int64]int64)}
}

func (b *Bindings) Bind(actorID, destinationID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[actorID] = destinationID
}

// Get returns the bound destination id, or 0 when the actor has none.
func (b *Bindings) Get(actorID int64) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.m[actorID]
}
