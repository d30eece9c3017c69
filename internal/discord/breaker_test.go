package discord

import (
	"sync"
	"testing"
	"time"
)

// backdate pushes the last failure into the past so state transitions can be
// tested without sleeping.
func backdate(cb *CircuitBreaker, d time.Duration) {
	cb.mu.Lock()
	cb.lastFailure = time.Now().Add(-d)
	cb.mu.Unlock()
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := NewCircuitBreaker(5, 30*time.Second, 2)

	if cb.State() != CBClosed {
		t.Errorf("expected initial state to be closed, got %s", cb.StateString())
	}
	if !cb.Allow() {
		t.Error("expected Allow() to return true in closed state")
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Second, 1)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	if cb.State() != CBOpen {
		t.Errorf("expected state to be open after 3 failures, got %s", cb.StateString())
	}
	if cb.Allow() {
		t.Error("expected Allow() to return false in open state")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Second, 1)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != CBClosed {
		t.Errorf("expected state to still be closed, got %s", cb.StateString())
	}
}

func TestCircuitBreaker_TransitionsToHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Second, 1)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CBOpen {
		t.Fatalf("expected state to be open, got %s", cb.StateString())
	}

	backdate(cb, 2*time.Second)

	if !cb.Allow() {
		t.Error("expected Allow() to return true after reset timeout")
	}
	if cb.State() != CBHalfOpen {
		t.Errorf("expected state to be half-open, got %s", cb.StateString())
	}
}

func TestCircuitBreaker_HalfOpenBoundsProbes(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Second, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	backdate(cb, 2*time.Second)

	// First Allow() is the open->half-open transition, then two probes.
	if !cb.Allow() || !cb.Allow() {
		t.Fatal("expected the probe budget to admit calls")
	}
	if cb.Allow() {
		t.Error("expected Allow() to refuse once the probe budget is spent")
	}
}

func TestCircuitBreaker_HalfOpenToClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Second, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	backdate(cb, 2*time.Second)
	cb.Allow()

	cb.RecordSuccess()

	if cb.State() != CBClosed {
		t.Errorf("expected state to be closed after success, got %s", cb.StateString())
	}
}

func TestCircuitBreaker_HalfOpenToOpenOnFailure(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Second, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	backdate(cb, 2*time.Second)
	cb.Allow()

	cb.RecordFailure()

	if cb.State() != CBOpen {
		t.Errorf("expected state to be open after failure in half-open, got %s", cb.StateString())
	}
}

func TestCircuitBreaker_DefaultsOnBadConfig(t *testing.T) {
	cb := NewCircuitBreaker(0, 0, 0)

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CBClosed {
		t.Error("defaulted threshold should be 5, circuit opened early")
	}
	cb.RecordFailure()
	if cb.State() != CBOpen {
		t.Error("expected circuit to open at the defaulted threshold")
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(5, 30*time.Second, 2)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cb.Allow()
			if n%2 == 0 {
				cb.RecordSuccess()
			} else {
				cb.RecordFailure()
			}
		}(i)
	}
	wg.Wait()

	state := cb.State()
	if state != CBClosed && state != CBOpen && state != CBHalfOpen {
		t.Errorf("invalid state after concurrent access: %d", state)
	}
}
