package syncerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	if got := KindOf(Network("op", base)); got != KindNetwork {
		t.Errorf("KindOf network = %q", got)
	}
	if got := KindOf(fmt.Errorf("wrapped: %w", Validation("op", base))); got != KindValidation {
		t.Errorf("KindOf through wrapping = %q", got)
	}
	if got := KindOf(base); got != "" {
		t.Errorf("KindOf plain error = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf nil = %q, want empty", got)
	}
}

func TestOnlyNetworkIsRetryable(t *testing.T) {
	base := errors.New("boom")

	if !IsRetryable(Network("op", base)) {
		t.Error("network error should be retryable")
	}
	for _, err := range []error{
		Validation("op", base),
		NotFound("op", base),
		Cache("op", base),
		Seed("op", base),
		base,
		nil,
	} {
		if IsRetryable(err) {
			t.Errorf("%v should not be retryable", err)
		}
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	base := errors.New("boom")
	err := Network("fetch", base)
	if !errors.Is(err, base) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}
