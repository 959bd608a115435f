package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/scribemark/feedback/llm"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second

	retryMultiplier          = 2.0
	retryRandomizationFactor = 0.2
)

// RetryConfig configures RetryPolicy.
type RetryConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RetriableTypes []llm.ErrorType
}

// transientTypes are the only error kinds a RetryPolicy will ever retry.
var transientTypes = []llm.ErrorType{
	llm.ErrorTypeRateLimit,
	llm.ErrorTypeServiceUnavailable,
}

// DefaultRetryConfig returns the standard retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		RetriableTypes: append([]llm.ErrorType(nil), transientTypes...),
	}
}

// Gate is consulted before each retry. A circuit breaker is the usual gate.
type Gate interface {
	Admits() bool
}

// RetryPolicy retries transient failures with jittered exponential backoff.
// It never records breaker outcomes itself; it only stops retrying once the
// gate reports the provider as unavailable.
type RetryPolicy struct {
	cfg      RetryConfig
	logger   zerolog.Logger
	newTimer func() backoff.Timer
}

// NewRetryPolicy creates a retry policy. Zero delays fall back to defaults and a
// base delay above the cap is clamped to it. MaxRetries of zero disables retries.
// RetriableTypes is restricted to rate limit and service unavailable errors;
// other kinds are dropped with a warning.
func NewRetryPolicy(cfg RetryConfig, logger zerolog.Logger) *RetryPolicy {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.BaseDelay > cfg.MaxDelay {
		cfg.BaseDelay = cfg.MaxDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	logger = logger.With().Str("component", "retryPolicy").Logger()
	if len(cfg.RetriableTypes) == 0 {
		cfg.RetriableTypes = DefaultRetryConfig().RetriableTypes
	} else {
		kept, dropped := lo.FilterReject(lo.Uniq(cfg.RetriableTypes), func(t llm.ErrorType, _ int) bool {
			return lo.Contains(transientTypes, t)
		})
		if len(dropped) > 0 {
			logger.Warn().Interface("error_types", dropped).Msg("Ignoring non-transient retriable error types")
		}
		cfg.RetriableTypes = kept
	}
	return &RetryPolicy{
		cfg:    cfg,
		logger: logger,
	}
}

// Config returns the effective configuration.
func (p *RetryPolicy) Config() RetryConfig {
	return p.cfg
}

func (p *RetryPolicy) newBackOff() backoff.BackOff {
	if p.cfg.MaxRetries == 0 {
		return &backoff.StopBackOff{}
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.BaseDelay
	eb.Multiplier = retryMultiplier
	eb.RandomizationFactor = retryRandomizationFactor
	eb.MaxInterval = p.cfg.MaxDelay
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(p.cfg.MaxRetries))
}

// IsRetriable reports whether err belongs to the retriable error set.
func (p *RetryPolicy) IsRetriable(err error) bool {
	t := llm.ErrorTypeOf(err)
	return t != "" && lo.Contains(p.cfg.RetriableTypes, t)
}

// Do runs op, retrying retriable failures while attempts remain and gate admits
// requests. The last error is returned as-is; non-retriable errors return
// immediately. Sleeping honors ctx, and a ctx that ends while waiting to retry
// still returns the last error from op.
func (p *RetryPolicy) Do(ctx context.Context, gate Gate, op func() error) error {
	attempt := 0
	var lastErr error
	operation := func() error {
		attempt++
		err := op()
		lastErr = err
		if err == nil {
			return nil
		}
		if !p.IsRetriable(err) {
			return backoff.Permanent(err)
		}
		if gate != nil && !gate.Admits() {
			p.logger.Warn().Err(err).Int("attempt", attempt).Msg("Circuit open, not retrying")
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		p.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", p.cfg.MaxRetries).
			Str("error_type", string(llm.ErrorTypeOf(err))).
			Dur("delay", delay).
			Msg("Transient LLM error, retrying")
	}

	b := backoff.WithContext(p.newBackOff(), ctx)
	var timer backoff.Timer
	if p.newTimer != nil {
		timer = p.newTimer()
	}
	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	if err != nil && lastErr != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) && !errors.Is(lastErr, ctx.Err()) {
		p.logger.Debug().Err(ctx.Err()).Int("attempt", attempt).Msg("Context ended before retry")
		return lastErr
	}
	return err
}
