package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsBurstThenReportsWait(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	ok, _ := rl.Allow("alice", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("alice", ActionSendMessage)
	assert.True(t, ok)

	ok, wait := rl.Allow("alice", ActionSendMessage)
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	ok, _ = rl.Allow("bob", ActionSendMessage)
	assert.True(t, ok, "buckets are per user")
}

func TestRejectedCallDoesNotConsume(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	ok, _ := rl.Allow("alice", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("alice", ActionSendMessage)
	assert.False(t, ok)

	current = current.Add(time.Second)
	ok, _ = rl.Allow("alice", ActionSendMessage)
	assert.True(t, ok)
}

func TestCleanupDropsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return current }

	rl.Allow("alice", ActionReact)
	current = current.Add(2 * time.Hour)
	rl.Cleanup(time.Hour)

	assert.Empty(t, rl.entries)
}
