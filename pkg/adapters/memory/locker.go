package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/cafe/pkg/ports"
)

// pollInterval is the wait between attempts on a held key.
const pollInterval = 10 * time.Millisecond

type lease struct {
	token   uint64
	expires time.Time // zero: held until released
}

// Locker implements ports.DistributedLocker for a single process.
// A lock whose ttl has passed may be taken by the next caller.
type Locker struct {
	mu     sync.Mutex
	next   uint64
	leases map[string]lease
}

// NewLocker creates an in-process locker.
func NewLocker() *Locker {
	return &Locker{leases: make(map[string]lease)}
}

func (l *Locker) tryAcquire(key string, ttl time.Duration) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if cur, held := l.leases[key]; held && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return 0, false
	}
	l.next++
	ls := lease{token: l.next}
	if ttl > 0 {
		ls.expires = now.Add(ttl)
	}
	l.leases[key] = ls
	return ls.token, true
}

func (l *Locker) release(key string, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.leases[key]; ok && cur.token == token {
		delete(l.leases, key)
	}
}

// Lock polls until key is free, or its holder's ttl has passed, or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	token, ok := l.tryAcquire(key, ttl)
	if !ok {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for !ok {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
				token, ok = l.tryAcquire(key, ttl)
			}
		}
	}

	return func(context.Context) error {
		l.release(key, token)
		return nil
	}, nil
}
