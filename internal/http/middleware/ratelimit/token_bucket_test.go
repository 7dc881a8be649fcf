package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(0, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	l := NewTokenBucket(clk, Config{Rate: 1, Burst: 2})

	assert.True(t, l.Allow("courier:1"))
	assert.True(t, l.Allow("courier:1"))
	assert.False(t, l.Allow("courier:1"), "bucket empty")

	clk.Add(time.Second)
	assert.True(t, l.Allow("courier:1"))
	assert.False(t, l.Allow("courier:1"))

	// refill is capped at the burst
	clk.Add(10 * time.Second)
	assert.True(t, l.Allow("courier:1"))
	assert.True(t, l.Allow("courier:1"))
	assert.False(t, l.Allow("courier:1"))
}

func TestTokenBucket_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewTokenBucket(newFakeClock(), Config{Rate: 1, Burst: 1})

	require.True(t, l.Allow("courier:1"))
	require.False(t, l.Allow("courier:1"))
	assert.True(t, l.Allow("courier:2"))
}

func TestTokenBucket_EvictsIdleBuckets(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	l := NewTokenBucket(clk, Config{Rate: 10, Burst: 1, TTL: 2 * time.Second})

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clk.Add(59 * time.Second)
	l.Allow("b")
	clk.Add(2 * time.Second)
	l.Allow("b")

	assert.Equal(t, 1, l.Len())
	l.mu.Lock()
	_, hasA := l.buckets["a"]
	l.mu.Unlock()
	assert.False(t, hasA)
}

func TestTokenBucket_MaxBucketsDeniesNewKeys(t *testing.T) {
	t.Parallel()

	l := NewTokenBucket(newFakeClock(), Config{Rate: 1, Burst: 5, MaxBuckets: 1})

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("b"))
	assert.True(t, l.Allow("a"))
}

func TestPerWindow(t *testing.T) {
	t.Parallel()

	cfg := PerWindow(3, time.Second, 0, 0)
	assert.Equal(t, Config{Rate: 3, Burst: 3}, cfg)

	l := NewTokenBucket(newFakeClock(), cfg)
	for i := 1; i <= 3; i++ {
		assert.True(t, l.Allow("k"), "allow #%d", i)
	}
	assert.False(t, l.Allow("k"))

	assert.Equal(t, Config{Rate: 1, Burst: 1}, PerWindow(0, 0, 0, 0))
}
