package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Client provides a provider-neutral interface for making LLM API calls.
// Implementations should handle provider-specific details internally.
type Client interface {
	// Generate sends a single prompt and returns the complete response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the provider id this client talks to.
	Provider() string
}

// Guard runs a raw provider call under the provider's circuit breaker and retry
// policy. resilience.Guard is the implementation used in production.
type Guard interface {
	Execute(ctx context.Context, provider string, op func(ctx context.Context) error) error
}

// Execute runs op through guard, or directly when guard is nil.
func Execute(ctx context.Context, guard Guard, provider string, op func(ctx context.Context) error) error {
	if guard == nil {
		return op(ctx)
	}
	return guard.Execute(ctx, provider, op)
}

// ValidatePrompt rejects nil requests and blank prompts before any I/O.
func ValidatePrompt(req *Request) error {
	if req == nil {
		return NewPromptValidationError("request is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return NewPromptValidationError("prompt must not be empty")
	}
	return nil
}

// Middleware provides hooks for decorating Client calls.
// This allows adding cross-cutting concerns like logging without touching providers.
type Middleware interface {
	// BeforeRequest is called before making an API request.
	// It can modify the request or return an error to abort the request.
	BeforeRequest(ctx context.Context, req *Request) (*Request, error)

	// AfterResponse is called after receiving a response.
	// It can modify the response or return an error.
	AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error)

	// OnError is called when an error occurs.
	// It can return a modified error or nil to use the original error.
	OnError(ctx context.Context, req *Request, err error) error
}

// MiddlewareFunc is a function type that implements Middleware.
type MiddlewareFunc struct {
	BeforeRequestFunc func(ctx context.Context, req *Request) (*Request, error)
	AfterResponseFunc func(ctx context.Context, req *Request, resp *Response) (*Response, error)
	OnErrorFunc       func(ctx context.Context, req *Request, err error) error
}

// BeforeRequest calls the BeforeRequestFunc if set.
func (f MiddlewareFunc) BeforeRequest(ctx context.Context, req *Request) (*Request, error) {
	if f.BeforeRequestFunc != nil {
		return f.BeforeRequestFunc(ctx, req)
	}
	return req, nil
}

// AfterResponse calls the AfterResponseFunc if set.
func (f MiddlewareFunc) AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	if f.AfterResponseFunc != nil {
		return f.AfterResponseFunc(ctx, req, resp)
	}
	return resp, nil
}

// OnError calls the OnErrorFunc if set.
func (f MiddlewareFunc) OnError(ctx context.Context, req *Request, err error) error {
	if f.OnErrorFunc != nil {
		return f.OnErrorFunc(ctx, req, err)
	}
	return err
}

// WrapWithMiddleware wraps a Client with middleware and returns a new Client.
func WrapWithMiddleware(client Client, middleware ...Middleware) Client {
	if len(middleware) == 0 {
		return client
	}
	return &clientWithMiddleware{
		client:     client,
		middleware: middleware,
	}
}

// clientWithMiddleware wraps a Client with middleware.
type clientWithMiddleware struct {
	client     Client
	middleware []Middleware
}

// Generate implements Client.Generate with middleware support.
func (c *clientWithMiddleware) Generate(ctx context.Context, req *Request) (*Response, error) {
	// Apply BeforeRequest middleware
	for _, mw := range c.middleware {
		var err error
		req, err = mw.BeforeRequest(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.client.Generate(ctx, req)
	if err != nil {
		// Apply OnError middleware
		for _, mw := range c.middleware {
			if mwErr := mw.OnError(ctx, req, err); mwErr != nil {
				err = mwErr
			}
		}
		return nil, err
	}

	// Apply AfterResponse middleware in reverse order
	for i := len(c.middleware) - 1; i >= 0; i-- {
		var err error
		resp, err = c.middleware[i].AfterResponse(ctx, req, resp)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// Provider implements Client.Provider.
func (c *clientWithMiddleware) Provider() string {
	return c.client.Provider()
}

// loggingMiddleware logs each call's outcome and token usage.
type loggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware returns a Middleware that logs every generation call.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return &loggingMiddleware{
		logger: logger.With().Str("component", "llmClient").Logger(),
	}
}

func (m *loggingMiddleware) BeforeRequest(ctx context.Context, req *Request) (*Request, error) {
	if req == nil {
		return req, nil
	}
	m.logger.Debug().
		Str("model", req.Model).
		Int("prompt_chars", len(req.Prompt)).
		Msg("Sending generation request")
	return req, nil
}

func (m *loggingMiddleware) AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	m.logger.Info().
		Str("model", resp.Model).
		Int64("input_tokens", resp.InputTokens).
		Int64("output_tokens", resp.OutputTokens).
		Msg("Generation request completed")
	return resp, nil
}

func (m *loggingMiddleware) OnError(ctx context.Context, req *Request, err error) error {
	var model string
	if req != nil {
		model = req.Model
	}
	m.logger.Warn().
		Err(err).
		Str("model", model).
		Str("error_type", string(ErrorTypeOf(err))).
		Msg("Generation request failed")
	return err
}

// Ensure clientWithMiddleware implements Client
var _ Client = (*clientWithMiddleware)(nil)
