package llm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error: %v", err)
	}
	for _, provider := range []string{ProviderAnthropic, ProviderGoogle, ProviderOpenAI, ProviderOllama} {
		def, ok := c.DefaultFor(provider)
		if !ok {
			t.Errorf("no default for %s", provider)
			continue
		}
		if def.Provider != provider {
			t.Errorf("default for %s belongs to %s", provider, def.Provider)
		}
	}
}

func TestNewCatalogRejectsTwoDefaults(t *testing.T) {
	_, err := NewCatalog([]ModelConfig{
		{ID: "a", Provider: ProviderGoogle, Default: true},
		{ID: "b", Provider: ProviderGoogle, Default: true},
	})
	if err == nil {
		t.Fatal("expected error for two defaults on one provider")
	}
}

func TestNewCatalogRejectsInvalidEntries(t *testing.T) {
	tests := map[string][]ModelConfig{
		"empty id":      {{Provider: ProviderGoogle}},
		"no provider":   {{ID: "a"}},
		"negative cost": {{ID: "a", Provider: ProviderGoogle, InputCostPerMillion: -1}},
		"duplicate":     {{ID: "a", Provider: ProviderGoogle}, {ID: "a", Provider: ProviderGoogle}},
	}
	for name, models := range tests {
		if _, err := NewCatalog(models); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCatalogLookupPrefersLongestPrefix(t *testing.T) {
	c, err := NewCatalog([]ModelConfig{
		{ID: "claude-sonnet-4", Provider: ProviderAnthropic, InputCostPerMillion: 3},
		{ID: "claude-sonnet-4-5", Provider: ProviderAnthropic, InputCostPerMillion: 4},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, ok := c.Lookup("claude-sonnet-4-5-20250929")
	if !ok || m.ID != "claude-sonnet-4-5" {
		t.Errorf("Lookup dated snapshot = %+v, %v", m, ok)
	}
	m, ok = c.Lookup("claude-sonnet-4-20250514")
	if !ok || m.ID != "claude-sonnet-4" {
		t.Errorf("Lookup older snapshot = %+v, %v", m, ok)
	}
	if _, ok := c.Lookup("claude-sonnet-40"); ok {
		t.Error("prefix match must stop at a '-' boundary")
	}
	if _, ok := c.Lookup("gpt-4o"); ok {
		t.Error("unknown model should not resolve")
	}
}

func TestCatalogValidateAndResolve(t *testing.T) {
	c, err := NewCatalog([]ModelConfig{
		{ID: "claude-haiku-4-5", Provider: ProviderAnthropic, Default: true},
		{ID: "gemini-2.5-flash", Provider: ProviderGoogle},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Validate("gemini-2.5-flash", ProviderAnthropic); !IsUnknownModelError(err) {
		t.Errorf("cross-provider model: got %v, want unknown model error", err)
	}
	if err := c.Validate("nope", ProviderAnthropic); !IsUnknownModelError(err) {
		t.Errorf("missing model: got %v, want unknown model error", err)
	}

	model, err := c.ResolveModel(ProviderAnthropic, "", "")
	if err != nil || model != "claude-haiku-4-5" {
		t.Errorf("ResolveModel default = %q, %v", model, err)
	}
	model, err = c.ResolveModel(ProviderGoogle, "", "gemini-2.5-flash")
	if err != nil || model != "gemini-2.5-flash" {
		t.Errorf("ResolveModel client default = %q, %v", model, err)
	}
	if _, err := c.ResolveModel(ProviderGoogle, "", ""); !IsUnknownModelError(err) {
		t.Errorf("provider without default: got %v", err)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte("models:\n  - id: test-model\n    provider: google\n    input_cost_per_million: 1\n    output_cost_per_million: 2\n    default: true\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error: %v", err)
	}
	m, ok := c.Lookup("test-model")
	if !ok || m.OutputCostPerMillion != 2 {
		t.Errorf("Lookup = %+v, %v", m, ok)
	}
	if len(c.All()) != 1 || len(c.ForProvider(ProviderGoogle)) != 1 {
		t.Error("expected exactly one model")
	}
}
