package booking

import "sync"

// ResourceLocks provides an advisory lock per resource so that writers
// cannot race past the conflict check into a double-booking.  The Service
// and the Generator share one instance: a recurrence sweep and a concurrent
// booking request touching the same resource serialize on the same mutex.
// Locks are scoped per resource, not global; the deployment runs a single
// scheduling authority, so an in-process mutex is sufficient.
type ResourceLocks struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// Lock acquires the mutex for the key and returns its unlock function.
func (k *ResourceLocks) Lock(key uint64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint64]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
