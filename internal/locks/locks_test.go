package locks

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLeaseLocker_AcquireRelease(t *testing.T) {
	l := NewLeaseLocker(10*time.Minute, zap.NewNop())

	if !l.Acquire("user-1") {
		t.Fatal("first acquire must succeed")
	}
	if l.Acquire("user-1") {
		t.Fatal("second acquire for a held lease must fail")
	}
	if !l.Acquire("user-2") {
		t.Fatal("leases are per user")
	}

	l.Release("user-1")
	if !l.Acquire("user-1") {
		t.Fatal("acquire after release must succeed")
	}
}

func TestLeaseLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	l := NewLeaseLocker(10*time.Minute, zap.NewNop())

	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	if !l.Acquire("user-1") {
		t.Fatal("first acquire must succeed")
	}

	current = current.Add(5 * time.Minute)
	if l.Acquire("user-1") {
		t.Fatal("lease must still be held before the TTL lapses")
	}

	current = current.Add(6 * time.Minute)
	if !l.Acquire("user-1") {
		t.Fatal("expired lease must be acquirable without release")
	}
}

func TestLeaseLocker_ReleaseUnheldIsNoop(t *testing.T) {
	l := NewLeaseLocker(time.Minute, zap.NewNop())
	l.Release("never-held")

	if !l.Acquire("never-held") {
		t.Fatal("acquire after spurious release must succeed")
	}
}

func TestLeaseLocker_ConcurrentAcquire(t *testing.T) {
	l := NewLeaseLocker(time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire("user-1") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactly one goroutine must win the lease, got %d", wins)
	}
}
