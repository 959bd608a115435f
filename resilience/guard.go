package resilience

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

// Guard wraps every outbound provider call: the retry policy around the
// provider's circuit breaker around the throttled raw call. Provider clients share
// one Guard owned by the pipeline service.
type Guard struct {
	breakers *Breakers
	retry    *RetryPolicy
	throttle *Throttle
	logger   zerolog.Logger
}

// NewGuard composes the resilience pieces. throttle may be nil.
func NewGuard(breakers *Breakers, retry *RetryPolicy, throttle *Throttle, logger zerolog.Logger) *Guard {
	return &Guard{
		breakers: breakers,
		retry:    retry,
		throttle: throttle,
		logger:   logger.With().Str("component", "guard").Logger(),
	}
}

// Breakers returns the breaker registry.
func (g *Guard) Breakers() *Breakers {
	return g.breakers
}

// Execute runs op for provider. Every attempt goes through the breaker, so
// failed attempts count towards opening it and retries stop once it opens.
// Errors pass through unchanged.
func (g *Guard) Execute(ctx context.Context, provider string, op func(ctx context.Context) error) error {
	breaker := g.breakers.For(provider)
	return g.retry.Do(ctx, breaker, func() error {
		return breaker.Run(func() error {
			if err := g.throttle.Wait(ctx, provider); err != nil {
				return llm.ErrorFromTransport(provider, fmt.Errorf("throttle wait: %w", err))
			}
			return op(ctx)
		})
	})
}
