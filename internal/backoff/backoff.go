// Package backoff provides the exponential backoff policy used when a fetch
// fails. The policy is a pure attempt->delay function so retry behavior can
// be asserted without waiting on real timers.
package backoff

import (
	"math"
	"time"
)

// Policy configures capped exponential backoff
type Policy struct {
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap applied to every delay
	Multiplier   float64       // growth factor between attempts
	MaxAttempts  int           // total attempts including the first
}

// Default returns the engine's standard policy: 1s, 2s, capped at 10s,
// three attempts in total.
func Default() Policy {
	return Policy{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  3,
	}
}

// Delay returns the wait before retry number attempt (0-based: Delay(0) is
// the wait after the first failure).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Exhausted reports whether attempt (0-based) was the last allowed one.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts-1
}
