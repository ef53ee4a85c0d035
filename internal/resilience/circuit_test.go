package resilience

import (
	"testing"
	"time"
)

func TestCircuitBreaker_ClosedAllowsCalls(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitConfig())

	if !cb.Available() {
		t.Fatal("expected new breaker to be available")
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  1 * time.Minute,
	})

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed below threshold, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("expected open at threshold, got %s", cb.State())
	}
	if cb.Available() {
		t.Error("open breaker should not be available")
	}
}

func TestCircuitBreaker_SuccessResetsCounter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  1 * time.Minute,
	})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	snap := cb.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("expected 0 consecutive failures after success, got %d", snap.ConsecutiveFailures)
	}
	if snap.State != "closed" {
		t.Errorf("expected closed, got %s", snap.State)
	}
}

func TestCircuitBreaker_LazyHalfOpenTransition(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  100 * time.Millisecond,
	})
	cb.nowFunc = func() time.Time { return now }

	cb.RecordFailure()
	if cb.Available() {
		t.Fatal("breaker should be open immediately after tripping")
	}

	// Advance past the recovery timeout; the availability query itself
	// performs the transition.
	now = now.Add(150 * time.Millisecond)
	if !cb.Available() {
		t.Fatal("expected trial call to be allowed after recovery timeout")
	}

	cb.mu.Lock()
	state := cb.state
	cb.mu.Unlock()
	if state != CircuitHalfOpen {
		t.Errorf("expected half-open after availability query, got %s", state)
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  50 * time.Millisecond,
	})
	cb.nowFunc = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(100 * time.Millisecond)
	if !cb.Available() {
		t.Fatal("expected trial call allowed")
	}

	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after trial success, got %s", cb.State())
	}
	if snap := cb.Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("expected failure counter reset, got %d", snap.ConsecutiveFailures)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  50 * time.Millisecond,
	})
	cb.nowFunc = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(100 * time.Millisecond)
	if !cb.Available() {
		t.Fatal("expected trial call allowed")
	}

	cb.RecordFailure()
	if cb.Available() {
		t.Error("breaker should reopen after trial failure")
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  1 * time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	cb.RecordFailure()
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestRegistry_UnregisteredAlwaysAvailable(t *testing.T) {
	r := NewRegistry()

	if !r.Available("heuristic") {
		t.Error("unregistered backend should always be available")
	}
	// These must be no-ops, not panics.
	r.RecordSuccess("heuristic")
	r.RecordFailure("heuristic")
}

func TestRegistry_PerBackendConfig(t *testing.T) {
	r := NewRegistry()
	r.Register("llm", CircuitConfig{FailureThreshold: 5, RecoveryTimeout: time.Minute})
	r.Register("ner", CircuitConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	r.RecordFailure("llm")
	r.RecordFailure("llm")
	r.RecordFailure("ner")
	r.RecordFailure("ner")

	if !r.Available("llm") {
		t.Error("llm should still be available below its threshold")
	}
	if r.Available("ner") {
		t.Error("ner should be open at its threshold")
	}

	snaps := r.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps["ner"].State != "open" {
		t.Errorf("expected ner open, got %s", snaps["ner"].State)
	}
	if snaps["llm"].ConsecutiveFailures != 2 {
		t.Errorf("expected 2 llm failures, got %d", snaps["llm"].ConsecutiveFailures)
	}
}
