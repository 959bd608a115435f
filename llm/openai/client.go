package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/scribemark/feedback/llm"
)

// Config holds the settings for an OpenAI-compatible client.
type Config struct {
	APIKey       string
	BaseURL      string // Custom base URL (default: official API)
	Organization string
	Model        string // Optional default model; falls back to the catalog default
	HTTPClient   *http.Client
}

// Client implements llm.Client for OpenAI-compatible chat completion APIs.
type Client struct {
	client  *openai.Client
	model   string
	catalog *llm.Catalog
	guard   llm.Guard
	logger  zerolog.Logger
}

// NewClient creates a new OpenAI client.
// If BaseURL is empty, it will use the default OpenAI API endpoint.
func NewClient(cfg Config, catalog *llm.Catalog, guard llm.Guard, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, llm.NewAuthenticationError(llm.ProviderOpenAI, "openai API key is required", nil)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Model != "" {
		if err := catalog.Validate(cfg.Model, llm.ProviderOpenAI); err != nil {
			return nil, err
		}
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Organization != "" {
		config.OrgID = cfg.Organization
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	} else {
		config.HTTPClient = llm.NewHTTPClient(0, 0)
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		catalog: catalog,
		guard:   guard,
		logger:  logger.With().Str("component", "openaiClient").Logger(),
	}, nil
}

// Provider implements llm.Client.
func (c *Client) Provider() string {
	return llm.ProviderOpenAI
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if err := llm.ValidatePrompt(req); err != nil {
		return nil, err
	}
	model, err := c.catalog.ResolveModel(llm.ProviderOpenAI, req.Model, c.model)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
		if chatReq.Temperature == 0 {
			// go-openai omits a zero temperature, which the API reads as 1
			chatReq.Temperature = math.SmallestNonzeroFloat32
		}
	}

	var resp openai.ChatCompletionResponse
	err = llm.Execute(ctx, c.guard, llm.ProviderOpenAI, func(ctx context.Context) error {
		r, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return convertOpenAIError(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, llm.NewRequestError(llm.ProviderOpenAI, "openai returned no choices", http.StatusOK, nil)
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}
	c.logger.Debug().
		Str("model", respModel).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("Chat completion received")

	return &llm.Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        respModel,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}, nil
}

// convertOpenAIError converts OpenAI API errors to llm.Error.
func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.ErrorFromStatus(llm.ProviderOpenAI, apiErr.HTTPStatusCode, apiErr.Message, nil, err)
	}

	// Non-JSON error bodies surface as RequestError
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return llm.ErrorFromStatus(llm.ProviderOpenAI, reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode), nil, err)
	}

	return llm.ErrorFromTransport(llm.ProviderOpenAI, err)
}

// Ensure Client implements llm.Client
var _ llm.Client = (*Client)(nil)
