package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

// DefaultMaxTokens is sent when the request does not set MaxTokens.
const DefaultMaxTokens int64 = 4096

// Config holds the settings for an Anthropic client.
type Config struct {
	APIKey     string
	BaseURL    string // Optional, defaults to the public API
	Model      string // Optional default model; falls back to the catalog default
	HTTPClient *http.Client
}

// Client implements llm.Client for Anthropic's Messages API.
type Client struct {
	client  anthropic.Client
	model   string
	catalog *llm.Catalog
	guard   llm.Guard
	logger  zerolog.Logger
}

// NewClient creates a new Anthropic client. The SDK's own retries are disabled;
// retries are handled by guard.
func NewClient(cfg Config, catalog *llm.Catalog, guard llm.Guard, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, llm.NewAuthenticationError(llm.ProviderAnthropic, "anthropic API key is required", nil)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Model != "" {
		if err := catalog.Validate(cfg.Model, llm.ProviderAnthropic); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = llm.NewHTTPClient(0, 0)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		catalog: catalog,
		guard:   guard,
		logger:  logger.With().Str("component", "anthropicClient").Logger(),
	}, nil
}

// Provider implements llm.Client.
func (c *Client) Provider() string {
	return llm.ProviderAnthropic
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if err := llm.ValidatePrompt(req); err != nil {
		return nil, err
	}
	model, err := c.catalog.ResolveModel(llm.ProviderAnthropic, req.Model, c.model)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	var message *anthropic.Message
	err = llm.Execute(ctx, c.guard, llm.ProviderAnthropic, func(ctx context.Context) error {
		m, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return convertAnthropicError(err)
		}
		message = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	respModel := string(message.Model)
	if respModel == "" {
		respModel = model
	}

	c.logger.Debug().
		Str("model", respModel).
		Str("stop_reason", string(message.StopReason)).
		Msg("Anthropic message received")

	return &llm.Response{
		Text:         text.String(),
		Model:        respModel,
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, nil
}

// convertAnthropicError maps SDK errors onto the shared error taxonomy.
func convertAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return llm.ErrorFromTransport(llm.ProviderAnthropic, err)
	}

	var retryAfter string
	if apiErr.Response != nil {
		retryAfter = apiErr.Response.Header.Get("Retry-After")
	}
	return llm.ErrorFromStatus(
		llm.ProviderAnthropic,
		apiErr.StatusCode,
		http.StatusText(apiErr.StatusCode),
		llm.ParseRetryAfter(retryAfter),
		err,
	)
}

// Ensure Client implements llm.Client
var _ llm.Client = (*Client)(nil)
