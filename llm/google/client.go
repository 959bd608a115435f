package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the settings for a Google client.
type Config struct {
	APIKey     string
	BaseURL    string // Optional, defaults to DefaultBaseURL
	Model      string // Optional default model; falls back to the catalog default
	HTTPClient *http.Client
}

// Client implements llm.Client for the Gemini generateContent API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	catalog    *llm.Catalog
	guard      llm.Guard
	logger     zerolog.Logger
}

// NewClient creates a new Google client.
func NewClient(cfg Config, catalog *llm.Catalog, guard llm.Guard, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, llm.NewAuthenticationError(llm.ProviderGoogle, "google API key is required", nil)
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Model != "" {
		if err := catalog.Validate(cfg.Model, llm.ProviderGoogle); err != nil {
			return nil, err
		}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = llm.NewHTTPClient(0, 0)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		httpClient: httpClient,
		catalog:    catalog,
		guard:      guard,
		logger:     logger.With().Str("component", "googleClient").Logger(),
	}, nil
}

// Provider implements llm.Client.
func (c *Client) Provider() string {
	return llm.ProviderGoogle
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int64    `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if err := llm.ValidatePrompt(req); err != nil {
		return nil, err
	}
	model, err := c.catalog.ResolveModel(llm.ProviderGoogle, req.Model, c.model)
	if err != nil {
		return nil, err
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		payload.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("google: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	var out generateResponse
	err = llm.Execute(ctx, c.guard, llm.ProviderGoogle, func(ctx context.Context) error {
		out = generateResponse{}
		return c.post(ctx, endpoint, body, &out)
	})
	if err != nil {
		return nil, err
	}

	if len(out.Candidates) == 0 {
		return nil, llm.NewRequestError(llm.ProviderGoogle, "google returned no candidates", http.StatusOK, nil)
	}
	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	respModel := out.ModelVersion
	if respModel == "" {
		respModel = model
	}

	c.logger.Debug().
		Str("model", respModel).
		Str("finish_reason", out.Candidates[0].FinishReason).
		Msg("Gemini content received")

	return &llm.Response{
		Text:         text.String(),
		Model:        respModel,
		InputTokens:  out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// post sends one request and decodes a 2xx body into out.
func (c *Client) post(ctx context.Context, endpoint string, body []byte, out *generateResponse) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return llm.NewRequestError(llm.ProviderGoogle, "google: create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.ErrorFromTransport(llm.ProviderGoogle, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Body close error can be ignored

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := resp.Status
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return llm.ErrorFromStatus(
			llm.ProviderGoogle,
			resp.StatusCode,
			msg,
			llm.ParseRetryAfter(resp.Header.Get("Retry-After")),
			fmt.Errorf("google API error %s: %s", resp.Status, strings.TrimSpace(string(data))),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return llm.ErrorFromTransport(llm.ProviderGoogle, fmt.Errorf("google: decode response: %w", err))
	}
	return nil
}

// Ensure Client implements llm.Client
var _ llm.Client = (*Client)(nil)
