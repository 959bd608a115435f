package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/scribemark/feedback/llm"
)

// AnthropicConfig represents configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`  // Anthropic API key
	BaseURL string `yaml:"base_url,omitempty"` // Optional endpoint override
}

// GoogleConfig represents configuration for the Google Gemini provider.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// OpenAIConfig represents configuration for OpenAI-compatible providers.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// OllamaConfig represents configuration for a local Ollama server.
type OllamaConfig struct {
	Host string `yaml:"host,omitempty"` // Ollama host (default: "http://localhost:11434")
}

// HTTPConfig holds outbound HTTP timeouts.
type HTTPConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	ReadTimeout    time.Duration `yaml:"read_timeout,omitempty"`
}

// CircuitBreakerConfig configures the per-provider circuit breakers.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold,omitempty"`
	ResetTimeout     time.Duration `yaml:"reset_timeout,omitempty"`
}

// RetryConfig configures the retry policy. A negative MaxRetries disables retries.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries,omitempty"`
	BaseDelay       time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay        time.Duration `yaml:"max_delay,omitempty"`
	RetriableErrors []string      `yaml:"retriable_errors,omitempty"` // e.g. rate_limit, service_unavailable
}

// ThrottleConfig configures the optional client-side request throttle.
type ThrottleConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // 0 disables throttling
	Burst             int     `yaml:"burst,omitempty"`
}

// UseCaseConfig selects the provider and model for one use case.
type UseCaseConfig struct {
	Provider    string   `yaml:"provider,omitempty"`    // "anthropic", "google", "openai" or "ollama"
	Model       string   `yaml:"model,omitempty"`       // Optional: uses the catalog default if omitted
	Temperature *float64 `yaml:"temperature,omitempty"` // Optional temperature override
	MaxTokens   int64    `yaml:"max_tokens,omitempty"`
}

// DatabaseConfig configures the usage ledger database.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // SQLite file, ":memory:" for throwaway runs
}

// Config is the feedback pipeline configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Google    GoogleConfig    `yaml:"google,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`

	HTTP           HTTPConfig               `yaml:"http,omitempty"`
	CircuitBreaker CircuitBreakerConfig     `yaml:"circuit_breaker,omitempty"`
	Retry          RetryConfig              `yaml:"retry,omitempty"`
	Throttle       ThrottleConfig           `yaml:"throttle,omitempty"`
	UseCases       map[string]UseCaseConfig `yaml:"use_cases,omitempty"`

	CatalogPath string         `yaml:"catalog_path,omitempty"` // Empty uses the embedded catalog
	Database    DatabaseConfig `yaml:"database,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Ollama: OllamaConfig{
			Host: llm.DefaultOllamaHost,
		},
		HTTP: HTTPConfig{
			ConnectTimeout: llm.DefaultConnectTimeout,
			ReadTimeout:    llm.DefaultReadTimeout,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:      3,
			BaseDelay:       1 * time.Second,
			MaxDelay:        30 * time.Second,
			RetriableErrors: []string{string(llm.ErrorTypeRateLimit), string(llm.ErrorTypeServiceUnavailable)},
		},
		UseCases: map[string]UseCaseConfig{
			string(llm.UseCaseRubricGeneration):          {Provider: llm.ProviderAnthropic},
			string(llm.UseCaseStudentWorkFeedback):       {Provider: llm.ProviderAnthropic},
			string(llm.UseCaseAssignmentSummaryFeedback): {Provider: llm.ProviderAnthropic},
		},
		Database: DatabaseConfig{
			Path: defaultDatabasePath(),
		},
	}
}

// GetConfigPath returns the default config file path.
// Can be overridden via FEEDBACK_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("FEEDBACK_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.feedback/config.yaml"
	}
	return filepath.Join(homeDir, ".feedback", "config.yaml")
}

func defaultDatabasePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.feedback/feedback.db"
	}
	return filepath.Join(homeDir, ".feedback", "feedback.db")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then environment variables. A .env file in the working directory
// is loaded into the environment first; variables already set win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	expandedPath := expandPath(path)
	if expandedPath != "" {
		if _, err := os.Stat(expandedPath); err == nil {
			data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
			}
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
			}
			// Merge file config on top of defaults
			if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("failed to merge config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	cfg.CatalogPath = expandPath(cfg.CatalogPath)
	cfg.Database.Path = expandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks use case routing and numeric settings.
func (c *Config) Validate() error {
	for name, uc := range c.UseCases {
		if !llm.UseCase(name).Valid() {
			return fmt.Errorf("config: unknown use case %q", name)
		}
		switch uc.Provider {
		case "", llm.ProviderAnthropic, llm.ProviderGoogle, llm.ProviderOpenAI, llm.ProviderOllama:
		default:
			return fmt.Errorf("config: use case %q: unknown provider %q", name, uc.Provider)
		}
		if uc.Temperature != nil && (*uc.Temperature < 0 || *uc.Temperature > 2) {
			return fmt.Errorf("config: use case %q: temperature must be between 0 and 2", name)
		}
	}
	for _, t := range c.Retry.RetriableErrors {
		switch llm.ErrorType(t) {
		case llm.ErrorTypeRateLimit, llm.ErrorTypeServiceUnavailable:
		default:
			return fmt.Errorf("config: error type %q cannot be retried", t)
		}
	}
	if c.Throttle.RequestsPerSecond < 0 {
		return fmt.Errorf("config: throttle requests_per_second must not be negative")
	}
	return nil
}

// Save writes the configuration to path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	// Ensure directory exists
	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
