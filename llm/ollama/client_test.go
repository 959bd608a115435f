package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

func newTestClient(t *testing.T, host string) *Client {
	t.Helper()
	catalog, err := llm.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewClient(Config{Host: host}, catalog, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestGenerateParsesChat(t *testing.T) {
	var got api.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"{\"x\":1}"},"done":true,"prompt_eval_count":30,"eval_count":9}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).Generate(context.Background(), &llm.Request{Prompt: "hi", MaxTokens: 256})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if resp.Text != `{"x":1}` || resp.Model != "llama3.1:8b" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.InputTokens != 30 || resp.OutputTokens != 9 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if got.Stream == nil || *got.Stream {
		t.Error("expected non-streaming request")
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGenerateMapsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model crashed"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Generate(context.Background(), &llm.Request{Prompt: "hi"})
	if !llm.IsServiceUnavailableError(err) {
		t.Fatalf("err = %v, want service unavailable", err)
	}
}

func TestParseHost(t *testing.T) {
	u, err := parseHost("localhost:11434")
	if err != nil {
		t.Fatal(err)
	}
	if u.String() != "http://localhost:11434" {
		t.Errorf("parseHost() = %s", u)
	}
}
