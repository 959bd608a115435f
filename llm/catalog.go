package llm

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ModelConfig describes one known model and what it costs.
type ModelConfig struct {
	ID                   string  `yaml:"id" json:"id"`
	Provider             string  `yaml:"provider" json:"provider"`
	InputCostPerMillion  float64 `yaml:"input_cost_per_million" json:"input_cost_per_million"`
	OutputCostPerMillion float64 `yaml:"output_cost_per_million" json:"output_cost_per_million"`
	Default              bool    `yaml:"default,omitempty" json:"default,omitempty"`
}

type catalogFile struct {
	Models []ModelConfig `yaml:"models"`
}

// Catalog is the static, read-only set of known models. It is built once at
// startup and safe for concurrent use.
type Catalog struct {
	models   map[string]ModelConfig
	ids      []string // sorted by descending length for prefix lookup
	defaults map[string]string
}

// NewCatalog validates the given models and builds a Catalog.
func NewCatalog(models []ModelConfig) (*Catalog, error) {
	c := &Catalog{
		models:   make(map[string]ModelConfig, len(models)),
		defaults: make(map[string]string),
	}
	for _, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		m.Provider = strings.TrimSpace(m.Provider)
		if m.ID == "" {
			return nil, fmt.Errorf("catalog: model with empty id")
		}
		if m.Provider == "" {
			return nil, fmt.Errorf("catalog: model %s has no provider", m.ID)
		}
		if m.InputCostPerMillion < 0 || m.OutputCostPerMillion < 0 {
			return nil, fmt.Errorf("catalog: model %s has a negative cost", m.ID)
		}
		if _, dup := c.models[m.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate model %s", m.ID)
		}
		if m.Default {
			if existing, ok := c.defaults[m.Provider]; ok {
				return nil, fmt.Errorf("catalog: provider %s has two defaults (%s, %s)", m.Provider, existing, m.ID)
			}
			c.defaults[m.Provider] = m.ID
		}
		c.models[m.ID] = m
		c.ids = append(c.ids, m.ID)
	}
	sort.Slice(c.ids, func(i, j int) bool {
		if len(c.ids[i]) != len(c.ids[j]) {
			return len(c.ids[i]) > len(c.ids[j])
		}
		return c.ids[i] < c.ids[j]
	})
	return c, nil
}

// ParseCatalog builds a Catalog from YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewCatalog(f.Models)
}

// LoadCatalog reads a catalog file. An empty path yields the embedded default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// Lookup finds the config for a model id. Providers often answer with a dated
// snapshot id (claude-sonnet-4-5-20250929), so when there is no exact match the
// longest catalog id that prefixes the model id at a '-' boundary is used.
func (c *Catalog) Lookup(modelID string) (ModelConfig, bool) {
	if m, ok := c.models[modelID]; ok {
		return m, true
	}
	for _, id := range c.ids {
		if strings.HasPrefix(modelID, id+"-") {
			return c.models[id], true
		}
	}
	return ModelConfig{}, false
}

// DefaultFor returns the default model for a provider.
func (c *Catalog) DefaultFor(provider string) (ModelConfig, bool) {
	id, ok := c.defaults[provider]
	if !ok {
		return ModelConfig{}, false
	}
	return c.models[id], true
}

// ForProvider lists the provider's models sorted by id.
func (c *Catalog) ForProvider(provider string) []ModelConfig {
	var out []ModelConfig
	for _, m := range c.models {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All lists every model sorted by provider, then id.
func (c *Catalog) All() []ModelConfig {
	out := make([]ModelConfig, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ResolveModel picks the model a client should use: the requested id, else the
// client's configured default, else the catalog default for the provider. The
// result must belong to provider.
func (c *Catalog) ResolveModel(provider, requested, clientDefault string) (string, error) {
	model := requested
	if model == "" {
		model = clientDefault
	}
	if model == "" {
		def, ok := c.DefaultFor(provider)
		if !ok {
			return "", NewUnknownModelError("", fmt.Sprintf("no default model configured for %s", provider))
		}
		return def.ID, nil
	}
	if err := c.Validate(model, provider); err != nil {
		return "", err
	}
	return model, nil
}

// Validate checks that modelID is known and belongs to provider.
func (c *Catalog) Validate(modelID, provider string) error {
	m, ok := c.Lookup(modelID)
	if !ok {
		return NewUnknownModelError(modelID, "not in catalog")
	}
	if m.Provider != provider {
		return NewUnknownModelError(modelID, fmt.Sprintf("belongs to %s, not %s", m.Provider, provider))
	}
	return nil
}
