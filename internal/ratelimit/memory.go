package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Janitor cadence: how often idle buckets are swept, and how long a key
// may go unseen before its bucket is dropped. At one bucket per client IP
// the map stays small, but an unbounded map keyed by remote addresses is
// still an easy way to leak.
const (
	sweepInterval = time.Minute
	idleAfter     = 10 * time.Minute
)

// tokenBucket is the balance for a single caller key.
type tokenBucket struct {
	balance  float64
	lastSeen time.Time
}

// MemoryLimiter is an in-process token-bucket Limiter keyed by caller.
// The server keys it by client IP and puts it in front of the expensive
// paths only: endpoints that submit ledger transactions and the Gemini
// analysis endpoint. Reads are not limited.
//
// Each key refills continuously at rate tokens per second up to burst.
// State lives in this process, so limits are per instance, not global.
type MemoryLimiter struct {
	rate  float64
	burst float64

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryLimiter creates a limiter allowing a sustained rate (tokens
// per second per key) with bursts up to burst. A janitor goroutine sweeps
// idle keys; call Close to stop it.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Allow spends one token from key's bucket, reporting whether one was
// available. A key's first request always passes: it opens a full bucket
// and spends from it.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &tokenBucket{balance: m.burst - 1, lastSeen: now}
		return true, nil
	}

	b.balance += now.Sub(b.lastSeen).Seconds() * m.rate
	if b.balance > m.burst {
		b.balance = m.burst
	}
	b.lastSeen = now

	if b.balance < 1 {
		return false, nil
	}
	b.balance--
	return true, nil
}

// Close stops the janitor goroutine. Safe to call multiple times.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryLimiter) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now().Add(-idleAfter))
		}
	}
}

// sweep drops every bucket not seen since the cutoff.
func (m *MemoryLimiter) sweep(cutoff time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
