// Package resilience gates calls to external dependencies with a
// per-dependency circuit breaker and wraps them with retry and exponential
// backoff.
package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerConfig controls when a dependency's circuit opens and how long it
// stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// Cooldown is how long the circuit stays open after the last failure
	// before the next attempt is permitted again.
	Cooldown time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	return c
}

type breakerState struct {
	failures    int
	lastFailure time.Time
	open        bool
}

// Breaker tracks consecutive failures per dependency and decides whether a
// call should be attempted at all. State transitions are evaluated lazily on
// Allow; there is no background timer. Safe for concurrent use.
type Breaker struct {
	cfg    BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	deps map[string]*breakerState
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithClock overrides the breaker's time source.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		b.now = now
	}
}

// NewBreaker creates a breaker for any number of dependencies. State for a
// dependency is created on first use.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger, opts ...BreakerOption) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
		deps:   make(map[string]*breakerState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call to the dependency should be attempted. When
// the cooldown has elapsed on an open circuit, the circuit closes, the
// failure count resets, and the attempt is permitted immediately.
func (b *Breaker) Allow(dependency string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.state(dependency)
	if !st.open {
		return true
	}

	if b.now().Sub(st.lastFailure) > b.cfg.Cooldown {
		st.open = false
		st.failures = 0
		b.logger.Info("circuit breaker reset",
			slog.String("dependency", dependency),
			slog.String("reason", "cooldown elapsed"),
		)
		return true
	}

	b.logger.Warn("circuit breaker blocked attempt",
		slog.String("dependency", dependency),
	)
	return false
}

// RecordSuccess clears the failure count and closes the circuit.
func (b *Breaker) RecordSuccess(dependency string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.state(dependency)
	st.failures = 0
	st.open = false
}

// RecordFailure increments the consecutive failure count and opens the
// circuit once the threshold is reached.
func (b *Breaker) RecordFailure(dependency string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.state(dependency)
	st.failures++
	st.lastFailure = b.now()

	if st.failures >= b.cfg.FailureThreshold && !st.open {
		st.open = true
		b.logger.Error("circuit breaker opened",
			slog.String("dependency", dependency),
			slog.Int("failures", st.failures),
		)
	}
}

func (b *Breaker) state(dependency string) *breakerState {
	st, ok := b.deps[dependency]
	if !ok {
		st = &breakerState{}
		b.deps[dependency] = st
	}
	return st
}
