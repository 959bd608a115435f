package pipeline

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
	llmanthropic "github.com/scribemark/feedback/llm/anthropic"
	llmgoogle "github.com/scribemark/feedback/llm/google"
	llmollama "github.com/scribemark/feedback/llm/ollama"
	llmopenai "github.com/scribemark/feedback/llm/openai"
)

// ClientBuilder creates a provider client for a resolved key.
type ClientBuilder func(key llm.ClientKey) (llm.Client, error)

// ClientFactory hands out provider clients per use case. Clients are cached by
// ClientKey and wrapped with logging middleware.
type ClientFactory struct {
	registry   *llm.ProviderRegistry
	catalog    *llm.Catalog
	guard      llm.Guard
	httpClient *http.Client
	build      ClientBuilder
	logger     zerolog.Logger

	mu    sync.RWMutex
	cache map[llm.ClientKey]llm.Client
}

// FactoryOption configures a ClientFactory.
type FactoryOption func(*ClientFactory)

// WithClientBuilder replaces the provider client constructor.
func WithClientBuilder(build ClientBuilder) FactoryOption {
	return func(f *ClientFactory) {
		f.build = build
	}
}

// WithHTTPClient sets the HTTP client shared by provider clients.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *ClientFactory) {
		f.httpClient = c
	}
}

// NewClientFactory creates a ClientFactory.
func NewClientFactory(registry *llm.ProviderRegistry, catalog *llm.Catalog, guard llm.Guard, logger zerolog.Logger, opts ...FactoryOption) *ClientFactory {
	f := &ClientFactory{
		registry: registry,
		catalog:  catalog,
		guard:    guard,
		logger:   logger.With().Str("component", "clientFactory").Logger(),
		cache:    make(map[llm.ClientKey]llm.Client),
	}
	f.build = f.buildProviderClient
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = llm.NewHTTPClient(0, 0)
	}
	return f
}

// ClientFor returns the client and route configured for useCase.
func (f *ClientFactory) ClientFor(useCase llm.UseCase) (llm.Client, *llm.Route, error) {
	route, err := f.registry.Resolve(useCase)
	if err != nil {
		return nil, nil, err
	}
	client, err := f.getOrCreateClient(route.Key)
	if err != nil {
		return nil, nil, err
	}
	return client, route, nil
}

// getOrCreateClient returns the cached client for key, creating it on first use.
func (f *ClientFactory) getOrCreateClient(key llm.ClientKey) (llm.Client, error) {
	f.mu.RLock()
	if client, ok := f.cache[key]; ok {
		f.mu.RUnlock()
		return client, nil
	}
	f.mu.RUnlock()

	// Not in cache - create without holding the lock
	base, err := f.build(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", key.Provider, err)
	}
	client := llm.WrapWithMiddleware(base, llm.NewLoggingMiddleware(f.logger.With().Str("provider", key.Provider).Logger()))

	f.mu.Lock()
	defer f.mu.Unlock()
	// Double-check: another goroutine might have created it meanwhile
	if existing, ok := f.cache[key]; ok {
		return existing, nil
	}
	f.cache[key] = client
	f.logger.Debug().Str("provider", key.Provider).Str("model", key.Model).Msg("Created provider client")
	return client, nil
}

// CachedClients returns the number of cached clients.
func (f *ClientFactory) CachedClients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

func (f *ClientFactory) buildProviderClient(key llm.ClientKey) (llm.Client, error) {
	switch key.Provider {
	case llm.ProviderAnthropic:
		return llmanthropic.NewClient(llmanthropic.Config{
			APIKey:     key.APIKey,
			BaseURL:    key.BaseURL,
			Model:      key.Model,
			HTTPClient: f.httpClient,
		}, f.catalog, f.guard, f.logger)

	case llm.ProviderGoogle:
		return llmgoogle.NewClient(llmgoogle.Config{
			APIKey:     key.APIKey,
			BaseURL:    key.BaseURL,
			Model:      key.Model,
			HTTPClient: f.httpClient,
		}, f.catalog, f.guard, f.logger)

	case llm.ProviderOpenAI:
		return llmopenai.NewClient(llmopenai.Config{
			APIKey:       key.APIKey,
			BaseURL:      key.BaseURL,
			Organization: key.Organization,
			Model:        key.Model,
			HTTPClient:   f.httpClient,
		}, f.catalog, f.guard, f.logger)

	case llm.ProviderOllama:
		return llmollama.NewClient(llmollama.Config{
			Host:       key.Host,
			Model:      key.Model,
			HTTPClient: f.httpClient,
		}, f.catalog, f.guard, f.logger)

	default:
		return nil, fmt.Errorf("unknown provider: %s", key.Provider)
	}
}
