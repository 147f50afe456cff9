package registration

import "sync"

// nameLocks serializes concurrent registrations of the same storage key.
// Entries are refcounted so the table only holds keys with in-flight work.
// The remote program's single-initialization rule remains the backstop for
// multi-instance deployments; this lock just keeps one process from racing
// itself.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*nameLock)}
}

// acquire blocks until the key's lock is held.
func (n *nameLocks) acquire(key string) {
	n.mu.Lock()
	l, ok := n.locks[key]
	if !ok {
		l = &nameLock{}
		n.locks[key] = l
	}
	l.refs++
	n.mu.Unlock()

	l.mu.Lock()
}

// release unlocks the key and drops the entry when no one else is waiting.
func (n *nameLocks) release(key string) {
	n.mu.Lock()
	l := n.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(n.locks, key)
	}
	n.mu.Unlock()

	l.mu.Unlock()
}
