package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Actions with their own budgets.
const (
	ActionSendMessage = "send_message"
	ActionReact       = "react"
	ActionCreateGroup = "create_group"
	ActionJoinInvite  = "join_invite"
	ActionConnect     = "connect"
)

// Policy is a token bucket: Burst tokens, refilled at PerMinute per minute.
type Policy struct {
	PerMinute int
	Burst     int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one limiter per (user, action).
type RateLimiter struct {
	policies map[string]Policy
	fallback Policy
	now      func() time.Time

	mutex   sync.Mutex
	entries map[string]*entry
}

// NewRateLimiter builds a limiter where send_message uses the given budget and
// the other actions use fixed defaults.
func NewRateLimiter(sendPerMinute, sendBurst int) *RateLimiter {
	return &RateLimiter{
		policies: map[string]Policy{
			ActionSendMessage: {PerMinute: sendPerMinute, Burst: sendBurst},
			ActionReact:       {PerMinute: 60, Burst: 20},
			ActionCreateGroup: {PerMinute: 5, Burst: 5},
			ActionJoinInvite:  {PerMinute: 10, Burst: 5},
			ActionConnect:     {PerMinute: 30, Burst: 10},
		},
		fallback: Policy{PerMinute: 20, Burst: 20},
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

func (rl *RateLimiter) policy(action string) Policy {
	if p, ok := rl.policies[action]; ok {
		return p
	}
	return rl.fallback
}

// Allow consumes a token for the user's action. When none is available it
// returns false and how long until one is.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	e, ok := rl.entries[key]
	if !ok {
		p := rl.policy(action)
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(p.PerMinute)/60), p.Burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	rl.mutex.Unlock()

	reservation := e.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

// Tokens reports the tokens currently available for the user's action.
func (rl *RateLimiter) Tokens(userID, action string) float64 {
	rl.mutex.Lock()
	e, ok := rl.entries[userID+":"+action]
	rl.mutex.Unlock()
	if !ok {
		return float64(rl.policy(action).Burst)
	}
	return e.limiter.TokensAt(rl.now())
}

// Cleanup drops limiters idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, e := range rl.entries {
		if now.Sub(e.lastSeen) > maxIdle {
			delete(rl.entries, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			}
		}
	}()
}
