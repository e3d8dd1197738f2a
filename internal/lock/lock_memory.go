package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendance_gate/internal/clock"
)

type lease struct {
	token   string
	expires time.Time
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu     sync.Mutex
	clock  clock.Clock
	leases map[string]lease
}

func NewMemory(c clock.Clock) *MemoryLocker {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryLocker{clock: c, leases: make(map[string]lease)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if cur, ok := l.leases[key]; ok && now.Before(cur.expires) {
		return nil, ErrHeld
	}
	token := uuid.NewString()
	l.leases[key] = lease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.leases[key]; ok && cur.token == token {
			delete(l.leases, key)
		}
		return nil
	}, nil
}
