package revocation

import (
	"context"
	"sync"
	"time"

	"attendance_gate/internal/clock"
)

// MemoryList is a process-local List. Expired entries are dropped lazily.
type MemoryList struct {
	mu      sync.Mutex
	clock   clock.Clock
	revoked map[string]time.Time
}

func NewMemory(c clock.Clock) *MemoryList {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryList{clock: c, revoked: make(map[string]time.Time)}
}

func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for id, exp := range l.revoked {
		if !now.Before(exp) {
			delete(l.revoked, id)
		}
	}
	l.revoked[jti] = now.Add(ttl)
	return nil
}

func (l *MemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.revoked[jti]
	return ok && l.clock.Now().Before(exp), nil
}
