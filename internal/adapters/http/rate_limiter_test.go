package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two attempts denied")
	}
	if rl.Allow("a") {
		t.Error("third attempt allowed")
	}
	if !rl.Allow("b") {
		t.Error("other key throttled")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("attempt after window denied")
	}
	now = now.Add(2 * time.Minute)
	rl.Prune()
	if len(rl.history) != 0 {
		t.Errorf("history after prune = %v", rl.history)
	}
}

func TestZeroLimitAllowsAll(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatal("zero limit throttled")
		}
	}
	var nilLimiter *RateLimiter
	if !nilLimiter.Allow("a") {
		t.Error("nil limiter throttled")
	}
}
