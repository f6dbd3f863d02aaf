package store

import "sync"

// Keyed is a try-lock over string keys, used to serialize exact duplicate
// actions such as two presses of the same submit button.
type Keyed struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewKeyed() *Keyed {
	return &Keyed{held: make(map[string]bool)}
}

// TryAcquire takes the lock for key if free. The caller must Release it.
func (k *Keyed) TryAcquire(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.held[key] {
		return false
	}
	k.held[key] = true
	return true
}

func (k *Keyed) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, key)
}

// Actors hands out one mutex per actor id so that concurrent events from the
// same person serialize while different people proceed in parallel.
type Actors struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewActors() *Actors {
	return &Actors{locks: make(map[int64]*sync.Mutex)}
}

// Lock blocks until the actor's mutex is held and returns the unlock func.
func (a *Actors) Lock(id int64) func() {
	a.mu.Lock()
	m, ok := a.locks[id]
	if !ok {
		m = &sync.Mutex{}
		a.locks[id] = m
	}
	a.mu.Unlock()
	m.Lock()
	return m.Unlock
}
