package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/kaystudios/assistant-gateway/internal/domain"
)

// Policy holds the retry configuration. The zero value is usable and falls
// back to 3 attempts with backoff growing from 1s to a 16s cap.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 16 * time.Second
	}
	return p
}

// Backoff returns the delay to wait after the given zero-based attempt:
// min(InitialBackoff * 2^attempt, MaxBackoff).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	// Guard the shift: past ~30 doublings the delay is capped anyway.
	if attempt > 30 {
		return p.MaxBackoff
	}
	d := p.InitialBackoff << uint(attempt)
	if d <= 0 || d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Executor combines a retry policy with a circuit breaker. One executor is
// shared by all in-flight requests; per-dependency state lives in the breaker.
type Executor struct {
	policy  Policy
	breaker *Breaker
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleep overrides the backoff sleep, used by tests to observe delays
// without waiting for them.
func WithSleep(sleep func(context.Context, time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// NewExecutor creates an executor with the given policy and breaker.
func NewExecutor(policy Policy, breaker *Breaker, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		policy:  policy.withDefaults(),
		breaker: breaker,
		logger:  logger,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Breaker exposes the underlying circuit breaker.
func (e *Executor) Breaker() *Breaker { return e.breaker }

// Do runs op against the named dependency with circuit-breaker gating and
// retry with exponential backoff.
//
// If the circuit is open the call fails immediately with an UnavailableError
// and no attempt is made. Fatal failures record one breaker failure and
// return at once without consuming the remaining attempt budget. Retryable
// and unknown failures are retried until the attempts are exhausted; no sleep
// happens after the final attempt. Exhaustion records a breaker failure and
// returns an UnavailableError carrying the last observed error.
func Do[T any](ctx context.Context, e *Executor, dependency string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if !e.breaker.Allow(dependency) {
		return zero, &domain.UnavailableError{Dependency: dependency}
	}

	var lastErr error
	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			e.breaker.RecordSuccess(dependency)
			return result, nil
		}
		lastErr = err

		kind := domain.KindOf(err)
		if kind == domain.KindFatal {
			e.breaker.RecordFailure(dependency)
			e.logger.Error("dependency call failed permanently",
				slog.String("dependency", dependency),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			return zero, err
		}

		level := slog.LevelWarn
		if kind == domain.KindUnknown {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "dependency call failed",
			slog.String("dependency", dependency),
			slog.String("kind", string(kind)),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", e.policy.MaxAttempts),
			slog.String("error", err.Error()),
		)

		if attempt < e.policy.MaxAttempts-1 {
			delay := e.policy.Backoff(attempt)
			e.logger.Info("retrying dependency call",
				slog.String("dependency", dependency),
				slog.Duration("backoff", delay),
			)
			if serr := e.sleep(ctx, delay); serr != nil {
				// Caller went away mid-backoff; not a dependency fault.
				return zero, serr
			}
		}
	}

	e.breaker.RecordFailure(dependency)
	return zero, &domain.UnavailableError{Dependency: dependency, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
