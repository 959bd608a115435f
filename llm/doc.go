// Package llm provides a provider-neutral abstraction layer for the language model
// APIs used to generate feedback on student writing.
//
// This package defines common types, interfaces, and utilities that allow the
// pipeline to work with multiple LLM providers (Anthropic, Google, OpenAI-compatible
// endpoints, Ollama) without being coupled to any specific provider's wire format.
//
// # Core Concepts
//
//  1. Requests and Responses: Request carries a single prompt plus optional model and
//     sampling overrides. Response is the normalized result every provider produces:
//     raw text, the model id reported by the provider, and token counts.
//
//  2. Client Interface: The Client interface exposes Generate() for a single
//     non-streaming call. Implementations handle provider-specific request and
//     response shapes, credentials, and status codes.
//
//  3. Catalog: The Catalog holds the static model configuration (provider, default
//     flag, per-million-token costs) loaded once at startup.
//
//  4. Registry: The ProviderRegistry resolves a use case (rubric generation, student
//     work feedback, assignment summary) to a concrete provider, model, and credentials.
//
//  5. Middleware: The Middleware interface allows adding cross-cutting concerns like
//     logging without modifying provider implementations.
//
//  6. Errors: The Error type classifies every failure into a small taxonomy
//     (prompt validation, authentication, rate limit, service unavailable, request,
//     circuit open, unknown model) that the retry policy and callers act on.
//
// Usage Example
//
//	client, err := anthropic.NewClient(anthropic.Config{APIKey: key}, catalog, guard, logger)
//	if err != nil {
//	    return err
//	}
//
//	client = llm.WrapWithMiddleware(client, llm.NewLoggingMiddleware(logger))
//
//	resp, err := client.Generate(ctx, &llm.Request{Prompt: "Draft a rubric for ..."})
//
// # Extension Points
//
// To add a new LLM provider:
//  1. Add the provider id to the catalog and the registry
//  2. Implement the Client interface
//  3. Route the HTTP call through resilience.Guard so the breaker and retry apply
//  4. Translate provider-specific failures with ErrorFromStatus and ErrorFromTransport
package llm
