package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionTyping      = "typing"
	ActionCreateChat  = "create_chat"
	ActionConnect     = "ws_connect"
)

// Rule is the steady rate and burst allowed for one action.
type Rule struct {
	PerSecond float64
	Burst     int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user:action key.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rules   map[string]Rule
	def     Rule
	idleTTL time.Duration
}

// NewRateLimiter builds a limiter whose send_message rule is
// sendPerSecond/sendBurst. Typing events get a looser bucket, chat creation
// a much tighter one.
func NewRateLimiter(sendPerSecond float64, sendBurst int) *RateLimiter {
	if sendPerSecond <= 0 {
		sendPerSecond = 2
	}
	if sendBurst <= 0 {
		sendBurst = 10
	}
	return &RateLimiter{
		entries: make(map[string]*entry),
		rules: map[string]Rule{
			ActionSendMessage: {PerSecond: sendPerSecond, Burst: sendBurst},
			ActionTyping:      {PerSecond: 5, Burst: 30},
			ActionCreateChat:  {PerSecond: 1.0 / 60, Burst: 5},
			ActionConnect:     {PerSecond: 0.5, Burst: 10},
		},
		def:     Rule{PerSecond: 1.0 / 3, Burst: 20},
		idleTTL: time.Hour,
	}
}

// Allow consumes a token for userID/action when one is available. When it
// is not, it reports how long until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	now := time.Now()
	l := rl.get(userID+":"+action, action, now)

	r := l.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) get(key, action string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	rule, ok := rl.rules[action]
	if !ok {
		rule = rl.def
	}
	e := &entry{
		limiter:  rate.NewLimiter(rate.Limit(rule.PerSecond), rule.Burst),
		lastSeen: now,
	}
	rl.entries[key] = e
	return e.limiter
}

// Cleanup drops buckets that have been idle longer than the TTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, e := range rl.entries {
		if now.Sub(e.lastSeen) > rl.idleTTL {
			delete(rl.entries, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup periodically until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}
