// Package lock serializes commits of the same purchase date across requests
// and, with Redis, across server instances.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLocked = errors.New("lock is held by another request")

type Lock interface {
	Release(ctx context.Context) error
}

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// LocalLocker is an in-process Locker. Entries expire after their ttl so a
// crashed holder cannot block a key forever.
type LocalLocker struct {
	mu   sync.Mutex
	now  func() time.Time
	held map[string]localEntry
	seq  uint64
}

type localEntry struct {
	token     uint64
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{now: time.Now, held: make(map[string]localEntry)}
}

func (l *LocalLocker) Obtain(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return nil, ErrLocked
	}
	l.seq++
	l.held[key] = localEntry{token: l.seq, expiresAt: now.Add(ttl)}
	return &localLock{owner: l, key: key, token: l.seq}, nil
}

type localLock struct {
	owner *LocalLocker
	key   string
	token uint64
}

func (l *localLock) Release(_ context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()

	if entry, ok := l.owner.held[l.key]; ok && entry.token == l.token {
		delete(l.owner.held, l.key)
	}
	return nil
}
