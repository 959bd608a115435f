package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

// Config holds the settings for an Ollama client.
type Config struct {
	Host       string // Defaults to llm.DefaultOllamaHost
	Model      string // Optional default model; falls back to the catalog default
	HTTPClient *http.Client
}

// Client implements llm.Client for a local Ollama server. No credentials are needed.
type Client struct {
	client  *api.Client
	model   string
	catalog *llm.Catalog
	guard   llm.Guard
	logger  zerolog.Logger
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config, catalog *llm.Catalog, guard llm.Guard, logger zerolog.Logger) (*Client, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Model != "" {
		if err := catalog.Validate(cfg.Model, llm.ProviderOllama); err != nil {
			return nil, err
		}
	}

	host := cfg.Host
	if host == "" {
		host = llm.DefaultOllamaHost
	}
	baseURL, err := parseHost(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = llm.NewHTTPClient(0, 0)
	}

	return &Client{
		client:  api.NewClient(baseURL, httpClient),
		model:   cfg.Model,
		catalog: catalog,
		guard:   guard,
		logger:  logger.With().Str("component", "ollamaClient").Logger(),
	}, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	// If host doesn't have a scheme, add http://
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// Provider implements llm.Client.
func (c *Client) Provider() string {
	return llm.ProviderOllama
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if err := llm.ValidatePrompt(req); err != nil {
		return nil, err
	}
	model, err := c.catalog.ResolveModel(llm.ProviderOllama, req.Model, c.model)
	if err != nil {
		return nil, err
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "user", Content: req.Prompt}},
		Stream:   new(bool), // false for non-streaming
		Options:  make(map[string]any),
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}

	var chatResp api.ChatResponse
	err = llm.Execute(ctx, c.guard, llm.ProviderOllama, func(ctx context.Context) error {
		err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			chatResp = resp
			return nil
		})
		if err != nil {
			return convertOllamaError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	respModel := chatResp.Model
	if respModel == "" {
		respModel = model
	}
	c.logger.Debug().Str("model", respModel).Bool("done", chatResp.Done).Msg("Ollama chat completed")

	return &llm.Response{
		Text:         chatResp.Message.Content,
		Model:        respModel,
		InputTokens:  int64(chatResp.PromptEvalCount),
		OutputTokens: int64(chatResp.EvalCount),
	}, nil
}

// convertOllamaError maps Ollama API errors onto the shared taxonomy.
func convertOllamaError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return llm.ErrorFromStatus(llm.ProviderOllama, statusErr.StatusCode, msg, nil, err)
	}
	return llm.ErrorFromTransport(llm.ProviderOllama, err)
}

// Ensure Client implements llm.Client
var _ llm.Client = (*Client)(nil)
