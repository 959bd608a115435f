package llm

import (
	"fmt"
	"sort"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// ClientKey uniquely identifies an LLM client configuration.
type ClientKey struct {
	Provider     string
	Model        string
	APIKey       string // For credential-based providers
	BaseURL      string // Optional endpoint override
	Organization string // For OpenAI
	Host         string // For Ollama
}

// Route is the resolved provider selection for one use case.
type Route struct {
	UseCase     UseCase
	Key         ClientKey
	Temperature *float64
	MaxTokens   int64
}

// UseCaseRoute is the configured provider/model preference for a use case.
// Empty Model means the catalog default for the provider.
type UseCaseRoute struct {
	Provider    string
	Model       string
	Temperature *float64
	MaxTokens   int64
}

// ProviderConfig holds the configuration needed for provider resolution.
// This avoids import cycles by not importing the config package.
type ProviderConfig struct {
	AnthropicAPIKey  string
	AnthropicBaseURL string
	GoogleAPIKey     string
	GoogleBaseURL    string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIOrg        string
	OllamaHost       string

	UseCases map[UseCase]UseCaseRoute
}

// DefaultOllamaHost is used when no host is configured.
const DefaultOllamaHost = "http://localhost:11434"

// ProviderRegistry resolves a use case to a concrete provider, model and credentials.
// Client creation and caching is handled by the caller to avoid import cycles.
type ProviderRegistry struct {
	mu      sync.RWMutex
	config  *ProviderConfig
	catalog *Catalog
}

// NewProviderRegistry creates a new ProviderRegistry.
func NewProviderRegistry(providerConfig *ProviderConfig, catalog *Catalog) *ProviderRegistry {
	if providerConfig == nil {
		providerConfig = &ProviderConfig{}
	}
	return &ProviderRegistry{
		config:  providerConfig,
		catalog: catalog,
	}
}

// IsProviderConfigured checks if a provider has the credentials it needs.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch provider {
	case ProviderAnthropic:
		return r.config.AnthropicAPIKey != ""
	case ProviderGoogle:
		return r.config.GoogleAPIKey != ""
	case ProviderOpenAI:
		return r.config.OpenAIAPIKey != ""
	case ProviderOllama:
		// Ollama doesn't require an API key, the host has a default
		return true
	default:
		return false
	}
}

// ConfiguredProviders lists providers that have credentials, sorted.
func (r *ProviderRegistry) ConfiguredProviders() []string {
	var out []string
	for _, p := range []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI, ProviderOllama} {
		if r.IsProviderConfigured(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve returns the route for a use case. Use cases without explicit
// configuration go to Anthropic with its catalog default model.
func (r *ProviderRegistry) Resolve(useCase UseCase) (*Route, error) {
	if !useCase.Valid() {
		return nil, fmt.Errorf("unknown use case %q", useCase)
	}

	r.mu.RLock()
	pref, ok := r.config.UseCases[useCase]
	r.mu.RUnlock()
	if !ok || pref.Provider == "" {
		pref.Provider = ProviderAnthropic
	}

	key, err := r.resolveProviderConfig(pref.Provider, pref.Model)
	if err != nil {
		return nil, fmt.Errorf("use case %s: %w", useCase, err)
	}

	return &Route{
		UseCase:     useCase,
		Key:         *key,
		Temperature: pref.Temperature,
		MaxTokens:   pref.MaxTokens,
	}, nil
}

// resolveProviderConfig resolves provider-specific configuration and returns a ClientKey.
func (r *ProviderRegistry) resolveProviderConfig(provider, modelOverride string) (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := &ClientKey{Provider: provider}

	switch provider {
	case ProviderAnthropic:
		if r.config.AnthropicAPIKey == "" {
			return nil, NewAuthenticationError(provider, "anthropic API key not configured", nil)
		}
		key.APIKey = r.config.AnthropicAPIKey
		key.BaseURL = r.config.AnthropicBaseURL

	case ProviderGoogle:
		if r.config.GoogleAPIKey == "" {
			return nil, NewAuthenticationError(provider, "google API key not configured", nil)
		}
		key.APIKey = r.config.GoogleAPIKey
		key.BaseURL = r.config.GoogleBaseURL

	case ProviderOpenAI:
		if r.config.OpenAIAPIKey == "" {
			return nil, NewAuthenticationError(provider, "openai API key not configured", nil)
		}
		key.APIKey = r.config.OpenAIAPIKey
		key.BaseURL = r.config.OpenAIBaseURL
		key.Organization = r.config.OpenAIOrg

	case ProviderOllama:
		key.Host = r.config.OllamaHost
		if key.Host == "" {
			key.Host = DefaultOllamaHost
		}

	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	if r.catalog == nil {
		key.Model = modelOverride
		return key, nil
	}
	model, err := r.catalog.ResolveModel(provider, modelOverride, "")
	if err != nil {
		return nil, err
	}
	key.Model = model
	return key, nil
}
