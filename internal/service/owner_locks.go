package service

import "sync"

// ownerLocks serializes mutations per owner. Different owners never
// contend; a single global lock here would make one user's ingest stall
// everyone else's.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *ownerLocks) forOwner(owner string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[owner] = lock
	}
	return lock
}
