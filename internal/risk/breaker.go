package risk

import (
	"sync"
	"time"
)

// CircuitBreaker halts quoting after too many consecutive losing fills
// or too many losses in a short window, and stays tripped for a fixed
// cooldown. A subsequent win never un-trips it early; only the
// cooldown expiring or ForceReset does.
type CircuitBreaker struct {
	mu sync.RWMutex

	maxConsecutiveLosses int
	rapidWindow          time.Duration
	rapidThreshold       int
	cooldown             time.Duration

	consecutiveLosses int
	lossWindow        []time.Time

	triggered     bool
	reason        string
	cooldownUntil time.Time
}

// NewCircuitBreaker creates a breaker with the given thresholds.
func NewCircuitBreaker(maxConsecutiveLosses, rapidThreshold int, rapidWindow, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxConsecutiveLosses: maxConsecutiveLosses,
		rapidWindow:          rapidWindow,
		rapidThreshold:       rapidThreshold,
		cooldown:             cooldown,
	}
}

// OnFillPnL records one fill's realized PnL (cents) and updates the
// consecutive-loss counter and rapid-loss window accordingly.
func (c *CircuitBreaker) OnFillPnL(pnl int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	switch {
	case pnl > 0:
		// A win resets the counter but does not un-trigger an already
		// tripped breaker.
		c.consecutiveLosses = 0
	case pnl < 0:
		c.consecutiveLosses++
		c.lossWindow = append(c.lossWindow, now)
		c.pruneLocked(now)
	}

	if c.triggered {
		return
	}

	if c.consecutiveLosses >= c.maxConsecutiveLosses {
		c.tripLocked("consecutive losses", now)
		return
	}
	if len(c.lossWindow) >= c.rapidThreshold {
		c.tripLocked("rapid losses", now)
	}
}

func (c *CircuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.rapidWindow)
	i := 0
	for ; i < len(c.lossWindow); i++ {
		if c.lossWindow[i].After(cutoff) {
			break
		}
	}
	c.lossWindow = c.lossWindow[i:]
}

func (c *CircuitBreaker) tripLocked(reason string, now time.Time) {
	c.triggered = true
	c.reason = reason
	c.cooldownUntil = now.Add(c.cooldown)
}

// IsTriggered reports whether the breaker is currently tripped,
// auto-clearing once the cooldown has elapsed.
func (c *CircuitBreaker) IsTriggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.triggered && time.Now().After(c.cooldownUntil) {
		c.triggered = false
		c.reason = ""
	}
	return c.triggered
}

// Reason returns the trip reason, or "" if not triggered.
func (c *CircuitBreaker) Reason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

// CooldownUntil returns when the current trip expires (zero value if
// not triggered).
func (c *CircuitBreaker) CooldownUntil() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cooldownUntil
}

// ConsecutiveLosses returns the current consecutive-loss count.
func (c *CircuitBreaker) ConsecutiveLosses() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.consecutiveLosses
}

// ForceReset clears all state immediately, bypassing the cooldown.
func (c *CircuitBreaker) ForceReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggered = false
	c.reason = ""
	c.consecutiveLosses = 0
	c.lossWindow = nil
	c.cooldownUntil = time.Time{}
}
