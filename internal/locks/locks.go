// Package locks provides a keyed sync lease so at most one ingestion run
// executes per user at a time.
package locks

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// LeaseLocker hands out per-user leases with an expiry. A crashed holder
// never needs an explicit release: its lease lapses after the TTL and the
// next run can proceed.
type LeaseLocker struct {
	mu     sync.Mutex
	leases map[string]time.Time
	ttl    time.Duration
	logger *zap.Logger

	now func() time.Time
}

// NewLeaseLocker creates a new lease locker.
func NewLeaseLocker(ttl time.Duration, logger *zap.Logger) *LeaseLocker {
	return &LeaseLocker{
		leases: make(map[string]time.Time),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire takes the lease for userID. It fails fast when an unexpired lease
// is already held; callers must not queue behind it.
func (l *LeaseLocker) Acquire(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiry, held := l.leases[userID]; held && now.Before(expiry) {
		return false
	}
	l.leases[userID] = now.Add(l.ttl)
	return true
}

// Release gives the lease back. Releasing an unheld lease is a no-op.
func (l *LeaseLocker) Release(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, userID)
}
