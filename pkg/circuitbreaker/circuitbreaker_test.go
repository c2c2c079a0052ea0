package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: got %v, want errBoom", i, err)
		}
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Hour, HalfOpenMaxRequests: 1})

	failN(t, cb, 3)

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("open breaker executed the call, err = %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Hour, HalfOpenMaxRequests: 1})

	failN(t, cb, 2)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	failN(t, cb, 2)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", cb.State())
	}
}

func TestHalfOpenProbeClosesBreaker(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond, HalfOpenMaxRequests: 3})

	failN(t, cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half_open after timeout", cb.State())
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatal(err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after probes", cb.State())
	}
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: 10 * time.Millisecond, HalfOpenMaxRequests: 1})

	failN(t, cb, 1)
	time.Sleep(20 * time.Millisecond)

	failN(t, cb, 1)
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", cb.State())
	}
}

func TestStateString(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" || StateHalfOpen.String() != "half_open" {
		t.Error("state strings changed")
	}
}
