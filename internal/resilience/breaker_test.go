package resilience

import (
	"testing"
	"time"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 5, Cooldown: time.Minute}, nil)

	for i := 0; i < 4; i++ {
		b.RecordFailure("inference")
		if !b.Allow("inference") {
			t.Fatalf("breaker open after %d failures, want open only at 5", i+1)
		}
	}

	b.RecordFailure("inference")
	if b.Allow("inference") {
		t.Fatal("breaker still permits attempts after reaching the failure threshold")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute}, nil)

	b.RecordFailure("inference")
	b.RecordFailure("inference")
	b.RecordSuccess("inference")

	// The count restarted, so two more failures must not open the circuit.
	b.RecordFailure("inference")
	b.RecordFailure("inference")
	if !b.Allow("inference") {
		t.Fatal("breaker opened even though a success reset the failure count")
	}

	b.RecordFailure("inference")
	if b.Allow("inference") {
		t.Fatal("breaker did not open after threshold consecutive failures")
	}
}

func TestBreaker_CooldownReopensLazily(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(
		BreakerConfig{FailureThreshold: 1, Cooldown: 60 * time.Second},
		nil,
		WithClock(func() time.Time { return now }),
	)

	b.RecordFailure("store")
	if b.Allow("store") {
		t.Fatal("breaker closed immediately after opening")
	}

	now = now.Add(59 * time.Second)
	if b.Allow("store") {
		t.Fatal("breaker closed before the cooldown elapsed")
	}

	now = now.Add(2 * time.Second)
	if !b.Allow("store") {
		t.Fatal("breaker still open after the cooldown elapsed")
	}

	// The reset cleared the failure count, so the next attempt is treated
	// as if the dependency were healthy.
	if !b.Allow("store") {
		t.Fatal("breaker reopened without a new failure")
	}
}

func TestBreaker_DependenciesAreIndependent(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}, nil)

	b.RecordFailure("inference")
	if b.Allow("inference") {
		t.Fatal("inference breaker should be open")
	}
	if !b.Allow("store") {
		t.Fatal("store breaker tripped by inference failures")
	}
}

func TestBreaker_ConcurrentFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 100, Cooldown: time.Minute}, nil)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				b.RecordFailure("inference")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if b.Allow("inference") {
		t.Fatal("100 concurrent failures under-counted; breaker should be open")
	}
}
