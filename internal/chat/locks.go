package chat

import (
	"context"
	"sync"
)

// SessionLocker serializes turns within a session. Two concurrent turns for
// the same session must never interleave.
type SessionLocker interface {
	// Lock blocks until the session lock is held and returns the unlock
	// function, or fails when ctx is done.
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// LocalLocker is the single-instance SessionLocker: one mutex per session
// id, created on demand. Entries are kept for the process lifetime; the
// working set of session ids is small.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
