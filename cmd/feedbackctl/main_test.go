package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

const rubricJSON = `{"criteria":[{"title":"Argument","description":"Clear claim","levels":[{"name":"Strong","description":"d1"},{"name":"Weak","description":"d2"}]}]}`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{"--config", filepath.Join(dir, "missing.yaml")}
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func testEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("FEEDBACK_CATALOG_PATH", "")
	return filepath.Join(t.TempDir(), "feedback.db")
}

func TestModelsListsCatalogAndRoutes(t *testing.T) {
	db := testEnv(t)
	out, err := runCLI(t, "--db", db, "models", "--provider", "anthropic")
	if err != nil {
		t.Fatalf("models error: %v", err)
	}
	if !strings.Contains(out, "claude-sonnet-4-5") {
		t.Errorf("output missing catalog model:\n%s", out)
	}
	if strings.Contains(out, "gemini") {
		t.Errorf("provider filter ignored:\n%s", out)
	}
	if !strings.Contains(out, "Configured providers: anthropic") {
		t.Errorf("output missing configured providers:\n%s", out)
	}
	if !strings.Contains(out, "rubric_generation: anthropic/") {
		t.Errorf("output missing use case route:\n%s", out)
	}
}

func TestGenerateRubricThenUsageTotals(t *testing.T) {
	db := testEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-5-20250929",
			"content":     []map[string]any{{"type": "text", "text": rubricJSON}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1000, "output_tokens": 200},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()
	t.Setenv("ANTHROPIC_BASE_URL", server.URL+"/")

	out, err := runCLI(t, "--db", db, "generate", "rubric",
		"--title", "Persuasive essay", "--instructions", "Argue for a policy change.",
		"--subject-id", "as-1", "--user", "teacher-1")
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	var got generateOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.UseCase != "rubric_generation" || got.Provider != "anthropic" || got.Attempts != 1 {
		t.Errorf("output = %+v", got)
	}
	if got.CostMicroUnits != 6000 {
		t.Errorf("cost = %d, want 6000", got.CostMicroUnits)
	}

	out, err = runCLI(t, "--db", db, "usage", "--totals", "--json")
	if err != nil {
		t.Fatalf("usage error: %v", err)
	}
	var totals []struct {
		Provider       string `json:"provider"`
		Requests       int64  `json:"requests"`
		CostMicroUnits int64  `json:"cost_micro_units"`
	}
	if err := json.Unmarshal([]byte(out), &totals); err != nil {
		t.Fatalf("usage output is not JSON: %v\n%s", err, out)
	}
	if len(totals) != 1 || totals[0].Requests != 1 || totals[0].CostMicroUnits != 6000 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestGenerateRequiresSubject(t *testing.T) {
	db := testEnv(t)
	_, err := runCLI(t, "--db", db, "generate", "rubric", "--title", "T", "--instructions", "I")
	if err == nil || !strings.Contains(err.Error(), "--subject-id") {
		t.Fatalf("err = %v", err)
	}
}

func TestLogfileAndPrettyAreExclusive(t *testing.T) {
	testEnv(t)
	_, err := runCLI(t, "--logfile", filepath.Join(t.TempDir(), "x.log"), "--pretty", "models")
	if err == nil {
		t.Fatal("expected error")
	}
}
