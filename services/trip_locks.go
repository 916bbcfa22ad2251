package services

import "sync"

// TripLocks serializes aggregate recomputation per trip. The ingest path and
// the trip-closing path both write trip stats; sharing one lock table keeps a
// close-time recompute from racing a concurrent batch recompute for the same
// trip. Entries are released when the trip reaches a terminal state.
type TripLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTripLocks() *TripLocks {
	return &TripLocks{locks: make(map[string]*sync.Mutex)}
}

// For returns the mutex for a trip, creating it on first use.
func (tl *TripLocks) For(tripID string) *sync.Mutex {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	lock, ok := tl.locks[tripID]
	if !ok {
		lock = &sync.Mutex{}
		tl.locks[tripID] = lock
	}
	return lock
}

// Forget drops the entry for a closed trip. A goroutine still waiting on the
// old mutex proceeds normally; once the trip is terminal its recompute is a
// no-op anyway.
func (tl *TripLocks) Forget(tripID string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	delete(tl.locks, tripID)
}

func (tl *TripLocks) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.locks)
}
