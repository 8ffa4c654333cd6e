package metering

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedLocker serializes the gate's check-then-append sequence per
// subscription. Implementations must block until the lock for the key is
// held and return the matching release function.
//
// The in-memory implementation below is correct for a single process. For
// multi-instance deployments use a locker backed by the shared store (see
// NewAdvisoryLocker) so serialization happens where the ledger lives.
type KeyedLocker interface {
	Lock(ctx context.Context, key uuid.UUID) (unlock func(), err error)
}

type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewMutexLocker returns an in-process KeyedLocker using one mutex per key.
func NewMutexLocker() KeyedLocker {
	return &mutexLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mutexLocker) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
