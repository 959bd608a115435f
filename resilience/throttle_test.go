package resilience

import (
	"context"
	"testing"
)

func TestThrottleDisabled(t *testing.T) {
	var nilThrottle *Throttle
	if nilThrottle.Enabled() {
		t.Error("nil throttle should be disabled")
	}
	if err := nilThrottle.Wait(context.Background(), "anthropic"); err != nil {
		t.Errorf("Wait() = %v", err)
	}

	th := NewThrottle(ThrottleConfig{})
	for i := 0; i < 100; i++ {
		if !th.Allow("anthropic") {
			t.Fatal("disabled throttle should always allow")
		}
	}
}

func TestThrottlePerProvider(t *testing.T) {
	th := NewThrottle(ThrottleConfig{RequestsPerSecond: 0.001, Burst: 1})
	if !th.Allow("anthropic") {
		t.Fatal("first request should be allowed")
	}
	if th.Allow("anthropic") {
		t.Error("second request should be throttled")
	}
	if !th.Allow("google") {
		t.Error("providers must have independent limiters")
	}
}
