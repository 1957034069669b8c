package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BurstThenBlock(t *testing.T) {
	m := NewMemoryLimiter(1, 3)
	defer m.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst should pass", i)
	}
	ok, err := m.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "request beyond burst should be limited")
}

func TestMemoryLimiter_KeysIndependent(t *testing.T) {
	m := NewMemoryLimiter(1, 1)
	defer m.Close()

	ctx := context.Background()
	ok, _ := m.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = m.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = m.Allow(ctx, "b")
	assert.True(t, ok, "a different key gets its own bucket")
}

func TestMemoryLimiter_Refill(t *testing.T) {
	m := NewMemoryLimiter(100, 1) // 100 tokens/s: refills within 10ms
	defer m.Close()

	ctx := context.Background()
	ok, _ := m.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = m.Allow(ctx, "k")
	require.False(t, ok)

	time.Sleep(30 * time.Millisecond)
	ok, _ = m.Allow(ctx, "k")
	assert.True(t, ok, "bucket should refill over time")
}

func TestMemoryLimiter_SweepDropsIdleKeys(t *testing.T) {
	m := NewMemoryLimiter(1, 1)
	defer m.Close()

	ctx := context.Background()
	ok, _ := m.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = m.Allow(ctx, "k")
	require.False(t, ok, "burst of one is spent")

	// A cutoff in the future marks every bucket idle.
	m.sweep(time.Now().Add(time.Second))

	ok, _ = m.Allow(ctx, "k")
	assert.True(t, ok, "swept key opens a fresh bucket")
}

func TestNoopLimiter(t *testing.T) {
	var l Limiter = NoopLimiter{}
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "any")
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, l.Close())
}
