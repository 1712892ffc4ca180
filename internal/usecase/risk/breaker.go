package risk

import (
	"sync"
	"time"
)

// BreakerState is one of the three classic breaker states.
type BreakerState string

const (
	// BreakerClosed admits orders and counts violations.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen rejects everything for the scope until cooldown elapses.
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen admits a single trial; its outcome decides the next
	// state.
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes the breaker.
type BreakerConfig struct {
	// ViolationThreshold is the rolling count that opens the breaker.
	ViolationThreshold int
	// Window is the rolling interval violations are counted over.
	Window time.Duration
	// Cooldown is how long an open breaker holds before a half-open trial.
	Cooldown time.Duration
}

// Breaker is a keyed three-state circuit breaker. Scopes are free-form
// strings; the engine keys one per symbol and one per account. Closed →
// Open on threshold, Open → Half-Open after cooldown, Half-Open → Closed on
// a successful trial or back to Open on a failed one.
type Breaker struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	scopes map[string]*breakerScope
	now    func() time.Time
}

type breakerScope struct {
	state      BreakerState
	violations []time.Time
	openedAt   time.Time
	trialInUse bool
}

// NewBreaker creates a breaker with the given thresholds.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.ViolationThreshold <= 0 {
		cfg.ViolationThreshold = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		cfg:    cfg,
		scopes: make(map[string]*breakerScope),
		now:    time.Now,
	}
}

// Allow reports whether the scope currently admits orders. In Half-Open it
// admits exactly one in-flight trial.
func (b *Breaker) Allow(scope string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.scopeLocked(scope)
	switch s.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(s.openedAt) < b.cfg.Cooldown {
			return false
		}
		s.state = BreakerHalfOpen
		s.trialInUse = true
		return true
	default: // half-open
		if s.trialInUse {
			return false
		}
		s.trialInUse = true
		return true
	}
}

// RecordSuccess reports a cleanly processed order. A successful half-open
// trial closes the breaker.
func (b *Breaker) RecordSuccess(scope string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.scopeLocked(scope)
	if s.state == BreakerHalfOpen {
		s.state = BreakerClosed
		s.violations = nil
		s.trialInUse = false
	}
}

// ReleaseTrial hands back an unused half-open trial slot when the admitted
// order never reached processing, so the next submission can be tried again
// instead of waiting on an outcome that will never arrive.
func (b *Breaker) ReleaseTrial(scope string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.scopeLocked(scope)
	if s.state == BreakerHalfOpen {
		s.trialInUse = false
	}
}

// RecordViolation reports a risk violation or a latency-budget overrun.
// Crossing the rolling threshold opens the breaker; a half-open trial
// failure re-opens it immediately.
func (b *Breaker) RecordViolation(scope string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	s := b.scopeLocked(scope)

	if s.state == BreakerHalfOpen {
		s.state = BreakerOpen
		s.openedAt = now
		s.trialInUse = false
		return
	}

	s.violations = append(s.violations, now)
	cutoff := now.Add(-b.cfg.Window)
	for len(s.violations) > 0 && s.violations[0].Before(cutoff) {
		s.violations = s.violations[1:]
	}

	if s.state == BreakerClosed && len(s.violations) >= b.cfg.ViolationThreshold {
		s.state = BreakerOpen
		s.openedAt = now
		s.violations = nil
	}
}

// State returns the scope's current state.
func (b *Breaker) State(scope string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scopeLocked(scope).state
}

func (b *Breaker) scopeLocked(scope string) *breakerScope {
	s, ok := b.scopes[scope]
	if !ok {
		s = &breakerScope{state: BreakerClosed}
		b.scopes[scope] = s
	}
	return s
}
