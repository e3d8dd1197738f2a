// Package lock provides the per-employee single-flight guard for clock-in
// attempts, so two attempts never run at once even across service instances.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock: already held")

// Locker acquires short-lived exclusive leases.
type Locker interface {
	// Acquire takes key for ttl. The returned Release is idempotent and only
	// frees the lease it created.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

type Release func(ctx context.Context) error

// ClockInKey is the lease key for an employee's verification attempt.
func ClockInKey(employeeID string) string {
	return "attendance:clockin:" + employeeID
}
