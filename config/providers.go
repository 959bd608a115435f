package config

import (
	"net/http"
	"os"

	"github.com/samber/lo"

	"github.com/scribemark/feedback/llm"
	"github.com/scribemark/feedback/resilience"
)

// applyEnvOverrides lets environment variables take precedence over the file.
func applyEnvOverrides(cfg *Config) {
	setFromEnv(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setFromEnv(&cfg.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")

	// GEMINI_API_KEY is what Google's own tooling uses
	setFromEnv(&cfg.Google.APIKey, "GEMINI_API_KEY")
	setFromEnv(&cfg.Google.APIKey, "GOOGLE_API_KEY")
	setFromEnv(&cfg.Google.BaseURL, "GOOGLE_BASE_URL")

	setFromEnv(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setFromEnv(&cfg.OpenAI.Organization, "OPENAI_ORG_ID")

	setFromEnv(&cfg.Ollama.Host, "OLLAMA_HOST")

	setFromEnv(&cfg.CatalogPath, "FEEDBACK_CATALOG_PATH")
	setFromEnv(&cfg.Database.Path, "FEEDBACK_DB_PATH")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ProviderConfig converts the configuration into provider routing settings.
func (c *Config) ProviderConfig() *llm.ProviderConfig {
	useCases := make(map[llm.UseCase]llm.UseCaseRoute, len(c.UseCases))
	for name, uc := range c.UseCases {
		useCases[llm.UseCase(name)] = llm.UseCaseRoute{
			Provider:    uc.Provider,
			Model:       uc.Model,
			Temperature: uc.Temperature,
			MaxTokens:   uc.MaxTokens,
		}
	}
	return &llm.ProviderConfig{
		AnthropicAPIKey:  c.Anthropic.APIKey,
		AnthropicBaseURL: c.Anthropic.BaseURL,
		GoogleAPIKey:     c.Google.APIKey,
		GoogleBaseURL:    c.Google.BaseURL,
		OpenAIAPIKey:     c.OpenAI.APIKey,
		OpenAIBaseURL:    c.OpenAI.BaseURL,
		OpenAIOrg:        c.OpenAI.Organization,
		OllamaHost:       c.Ollama.Host,
		UseCases:         useCases,
	}
}

// BreakerSettings returns the circuit breaker settings.
func (c *Config) BreakerSettings() resilience.BreakerSettings {
	return resilience.BreakerSettings{
		FailureThreshold: c.CircuitBreaker.FailureThreshold,
		ResetTimeout:     c.CircuitBreaker.ResetTimeout,
	}
}

// RetryConfig returns the retry policy settings.
func (c *Config) RetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxRetries: max(c.Retry.MaxRetries, 0),
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
		RetriableTypes: lo.Map(c.Retry.RetriableErrors, func(t string, _ int) llm.ErrorType {
			return llm.ErrorType(t)
		}),
	}
}

// ThrottleConfig returns the client-side throttle settings.
func (c *Config) ThrottleConfig() resilience.ThrottleConfig {
	return resilience.ThrottleConfig{
		RequestsPerSecond: c.Throttle.RequestsPerSecond,
		Burst:             c.Throttle.Burst,
	}
}

// HTTPClient returns an HTTP client with the configured timeouts.
func (c *Config) HTTPClient() *http.Client {
	return llm.NewHTTPClient(c.HTTP.ConnectTimeout, c.HTTP.ReadTimeout)
}

// LoadCatalog loads the model catalog from CatalogPath, or the embedded default.
func (c *Config) LoadCatalog() (*llm.Catalog, error) {
	return llm.LoadCatalog(c.CatalogPath)
}
