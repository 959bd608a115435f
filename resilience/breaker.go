package resilience

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

// State is the admission state of a circuit breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
)

// BreakerSettings configures when a breaker opens and how long it stays open.
type BreakerSettings struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = DefaultFailureThreshold
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = DefaultResetTimeout
	}
	return s
}

// CircuitState is a point-in-time copy of a breaker's state.
type CircuitState struct {
	Provider            string        `json:"provider"`
	Status              State         `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastFailureTime     time.Time     `json:"last_failure_time,omitempty"`
	FailureThreshold    int           `json:"failure_threshold"`
	ResetTimeout        time.Duration `json:"reset_timeout"`
}

// BreakerOption customizes a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) {
		b.now = now
	}
}

// CircuitBreaker gates calls to a single provider.
//
// Transitions out of OPEN are lazy: they happen when the state is next queried,
// not on a timer. All reads and writes happen under mu, so check-then-act is atomic.
type CircuitBreaker struct {
	mu            sync.Mutex
	provider      string
	settings      BreakerSettings
	state         State
	failures      int
	lastFailure   time.Time
	trialInFlight bool
	now           func() time.Time
	logger        zerolog.Logger
}

// NewCircuitBreaker creates a closed breaker for provider.
func NewCircuitBreaker(provider string, settings BreakerSettings, logger zerolog.Logger, opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		provider: provider,
		settings: settings.withDefaults(),
		state:    StateClosed,
		now:      time.Now,
		logger:   logger.With().Str("component", "circuitBreaker").Str("provider", provider).Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Provider returns the provider this breaker guards.
func (b *CircuitBreaker) Provider() string {
	return b.provider
}

// currentStateLocked applies the lazy OPEN -> HALF_OPEN transition. Must be called with mu held.
func (b *CircuitBreaker) currentStateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.settings.ResetTimeout {
		b.transitionLocked(StateHalfOpen)
		b.trialInFlight = false
	}
	return b.state
}

func (b *CircuitBreaker) transitionLocked(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	evt := b.logger.Info()
	if to == StateOpen {
		evt = b.logger.Warn()
	}
	evt.Str("from", string(from)).
		Str("to", string(to)).
		Int("consecutive_failures", b.failures).
		Msg("Circuit breaker state changed")
}

// State returns the current state, applying any pending lazy transition.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// Admits reports whether the breaker is not OPEN. Unlike AllowRequest it does
// not consume the HALF_OPEN trial slot.
func (b *CircuitBreaker) Admits() bool {
	return b.State() != StateOpen
}

// AllowRequest reports whether a call may proceed. In HALF_OPEN exactly one
// caller is admitted until a success or failure is recorded.
func (b *CircuitBreaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess closes a HALF_OPEN breaker and resets the failure count.
// Successes that arrive while OPEN are ignored.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.failures = 0
		b.trialInFlight = false
		b.transitionLocked(StateClosed)
	}
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failure in HALF_OPEN reopens it and restarts the timer.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentStateLocked()
	b.failures++
	b.lastFailure = b.now()

	switch state {
	case StateClosed:
		if b.failures >= b.settings.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.trialInFlight = false
		b.transitionLocked(StateOpen)
	}
}

// release frees a HALF_OPEN trial slot without recording an outcome.
func (b *CircuitBreaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.trialInFlight = false
	}
}

// Run executes op if the breaker admits it and records the outcome. The error
// from op is returned unchanged; a denied call returns a circuit open error.
// Caller cancellation is not counted as a failure.
func (b *CircuitBreaker) Run(op func() error) error {
	if !b.AllowRequest() {
		b.logger.Debug().Msg("Request rejected by open circuit")
		return llm.NewCircuitOpenError(b.provider)
	}
	if err := op(); err != nil {
		if errors.Is(err, context.Canceled) {
			b.release()
			return err
		}
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Snapshot returns a copy of the breaker's state.
func (b *CircuitBreaker) Snapshot() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitState{
		Provider:            b.provider,
		Status:              b.currentStateLocked(),
		ConsecutiveFailures: b.failures,
		LastFailureTime:     b.lastFailure,
		FailureThreshold:    b.settings.FailureThreshold,
		ResetTimeout:        b.settings.ResetTimeout,
	}
}

// Breakers holds one CircuitBreaker per provider. It is owned by a long-lived
// service and passed to clients; there is no package-level registry.
type Breakers struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	settings BreakerSettings
	opts     []BreakerOption
	logger   zerolog.Logger
}

// NewBreakers creates an empty registry. Breakers are created on first use.
func NewBreakers(settings BreakerSettings, logger zerolog.Logger, opts ...BreakerOption) *Breakers {
	return &Breakers{
		breakers: make(map[string]*CircuitBreaker),
		settings: settings,
		opts:     opts,
		logger:   logger,
	}
}

// For returns the breaker for provider, creating it if needed.
// Concurrent first use yields a single instance.
func (r *Breakers) For(provider string) *CircuitBreaker {
	r.mu.RLock()
	if b, ok := r.breakers[provider]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if b, ok := r.breakers[provider]; ok {
		return b
	}
	b := NewCircuitBreaker(provider, r.settings, r.logger, r.opts...)
	r.breakers[provider] = b
	return b
}

// Snapshots returns the state of every known breaker sorted by provider.
func (r *Breakers) Snapshots() []CircuitState {
	r.mu.RLock()
	list := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.RUnlock()

	out := make([]CircuitState, 0, len(list))
	for _, b := range list {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
