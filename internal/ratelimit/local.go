package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter is an in-process token bucket per key, for deployments
// without Redis. A limit of N per minute refills one token every minute/N
// with a burst of N.
type LocalLimiter struct {
	mu              sync.Mutex
	entries         map[string]*localEntry
	now             func() time.Time
	entryTTL        time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
}

type localEntry struct {
	limiter    *rate.Limiter
	limit      int
	lastAccess time.Time
}

// NewLocalLimiter creates an empty per-key limiter.
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		entries:         make(map[string]*localEntry),
		now:             time.Now,
		entryTTL:        10 * time.Minute,
		cleanupInterval: 5 * time.Minute,
	}
}

// AllowWithDetails consumes one token for key if available.
func (l *LocalLimiter) AllowWithDetails(ctx context.Context, key string, limit int) (bool, int, time.Time, error) {
	if limit <= 0 {
		return true, -1, time.Time{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	entry, ok := l.entries[key]
	if !ok || entry.limit != limit {
		entry = &localEntry{
			limiter: rate.NewLimiter(rate.Every(Window/time.Duration(limit)), limit),
			limit:   limit,
		}
		l.entries[key] = entry
	}
	entry.lastAccess = now

	allowed := entry.limiter.AllowN(now, 1)

	tokens := entry.limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	// Time until the bucket is full again.
	missing := float64(limit) - tokens
	refill := time.Duration(missing / float64(entry.limiter.Limit()) * float64(time.Second))
	return allowed, remaining, now.Add(refill), nil
}

// Len returns the number of tracked keys.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *LocalLimiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.cleanupInterval {
		return
	}
	l.lastCleanup = now
	for key, entry := range l.entries {
		if now.Sub(entry.lastAccess) > l.entryTTL {
			delete(l.entries, key)
		}
	}
}
