package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterSetBurstThenInterval(t *testing.T) {
	set := newLimiterSet(RateLimitOptions{Interval: time.Second, Burst: 3})
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		assert.True(t, set.allow(42, base), "burst update %d", i)
	}
	assert.False(t, set.allow(42, base.Add(100*time.Millisecond)))
	assert.True(t, set.allow(42, base.Add(1100*time.Millisecond)))

	// other users have their own bucket
	assert.True(t, set.allow(7, base))
}

func TestLimiterSetDropsIdleUsers(t *testing.T) {
	set := newLimiterSet(RateLimitOptions{Interval: time.Second, IdleTTL: time.Minute})
	base := time.Unix(1_700_000_000, 0)

	set.allow(1, base)
	set.allow(2, base.Add(30*time.Second))
	set.allow(3, base.Add(2*time.Minute))

	set.mu.Lock()
	defer set.mu.Unlock()
	assert.NotContains(t, set.users, int64(1))
	assert.Contains(t, set.users, int64(3))
}
