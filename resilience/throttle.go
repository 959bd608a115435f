package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ThrottleConfig sets a client-side request rate per provider.
// A zero RequestsPerSecond disables throttling.
type ThrottleConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Throttle spaces out outbound requests per provider so bursts of background
// jobs do not trip upstream rate limits.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      ThrottleConfig
}

// NewThrottle creates a per-provider throttle.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
	}
}

// Enabled reports whether requests are being throttled.
func (t *Throttle) Enabled() bool {
	return t != nil && t.cfg.RequestsPerSecond > 0
}

func (t *Throttle) limiter(provider string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[provider]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.cfg.RequestsPerSecond), t.cfg.Burst)
		t.limiters[provider] = l
	}
	return l
}

// Wait blocks until provider may send another request or ctx is done.
func (t *Throttle) Wait(ctx context.Context, provider string) error {
	if !t.Enabled() {
		return nil
	}
	return t.limiter(provider).Wait(ctx)
}

// Allow reports whether a request may be sent right now without waiting.
func (t *Throttle) Allow(provider string) bool {
	if !t.Enabled() {
		return true
	}
	return t.limiter(provider).Allow()
}
