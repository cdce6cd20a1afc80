package fs

import (
	"errors"
	"sync"
)

// ErrLocked is returned by Lock when the lock is already held.
var ErrLocked = errors.New("lock held by another owner")

// memLocks tracks locks for filesystems without a kernel lock primitive.
type memLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (l *memLocks) acquire(name string) (*memLock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]struct{})
	}
	if _, ok := l.held[name]; ok {
		return nil, ErrLocked
	}
	l.held[name] = struct{}{}
	return &memLock{owner: l, name: name}, nil
}

type memLock struct {
	owner *memLocks
	name  string
	once  sync.Once
}

func (m *memLock) Close() error {
	m.once.Do(func() {
		m.owner.mu.Lock()
		delete(m.owner.held, m.name)
		m.owner.mu.Unlock()
	})
	return nil
}
