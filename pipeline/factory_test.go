package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/llm"
)

func testCatalog(t *testing.T) *llm.Catalog {
	t.Helper()
	catalog, err := llm.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	return catalog
}

func TestClientForCachesPerKey(t *testing.T) {
	catalog := testCatalog(t)
	registry := llm.NewProviderRegistry(&llm.ProviderConfig{
		AnthropicAPIKey: "a-key",
		GoogleAPIKey:    "g-key",
		UseCases: map[llm.UseCase]llm.UseCaseRoute{
			llm.UseCaseStudentWorkFeedback:       {Provider: llm.ProviderGoogle},
			llm.UseCaseAssignmentSummaryFeedback: {Provider: llm.ProviderGoogle, Temperature: llm.Float64(0.2)},
		},
	}, catalog)

	var builds int32
	factory := NewClientFactory(registry, catalog, nil, zerolog.Nop(), WithClientBuilder(func(key llm.ClientKey) (llm.Client, error) {
		atomic.AddInt32(&builds, 1)
		return &scriptedClient{}, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, uc := range llm.UseCases() {
				if _, _, err := factory.ClientFor(uc); err != nil {
					t.Errorf("ClientFor(%s) error: %v", uc, err)
				}
			}
		}()
	}
	wg.Wait()

	if n := factory.CachedClients(); n != 2 {
		t.Errorf("CachedClients() = %d, want 2 (anthropic and google)", n)
	}
	_, route, err := factory.ClientFor(llm.UseCaseAssignmentSummaryFeedback)
	if err != nil {
		t.Fatal(err)
	}
	if route.Key.Model != "gemini-2.5-flash" || route.Temperature == nil || *route.Temperature != 0.2 {
		t.Errorf("route = %+v", route)
	}
}

func TestClientForDefaultBuilder(t *testing.T) {
	catalog := testCatalog(t)
	registry := llm.NewProviderRegistry(&llm.ProviderConfig{
		AnthropicAPIKey: "a-key",
		OpenAIAPIKey:    "o-key",
		UseCases: map[llm.UseCase]llm.UseCaseRoute{
			llm.UseCaseStudentWorkFeedback:       {Provider: llm.ProviderOpenAI},
			llm.UseCaseAssignmentSummaryFeedback: {Provider: llm.ProviderOllama},
		},
	}, catalog)
	factory := NewClientFactory(registry, catalog, nil, zerolog.Nop())

	want := map[llm.UseCase]string{
		llm.UseCaseRubricGeneration:          llm.ProviderAnthropic,
		llm.UseCaseStudentWorkFeedback:       llm.ProviderOpenAI,
		llm.UseCaseAssignmentSummaryFeedback: llm.ProviderOllama,
	}
	for uc, provider := range want {
		client, _, err := factory.ClientFor(uc)
		if err != nil {
			t.Fatalf("ClientFor(%s) error: %v", uc, err)
		}
		if client.Provider() != provider {
			t.Errorf("ClientFor(%s).Provider() = %s, want %s", uc, client.Provider(), provider)
		}
	}
}

func TestClientForMissingCredentials(t *testing.T) {
	catalog := testCatalog(t)
	factory := NewClientFactory(llm.NewProviderRegistry(&llm.ProviderConfig{}, catalog), catalog, nil, zerolog.Nop())
	if _, _, err := factory.ClientFor(llm.UseCaseRubricGeneration); !llm.IsAuthenticationError(err) {
		t.Errorf("err = %v, want authentication error", err)
	}
	if factory.CachedClients() != 0 {
		t.Error("nothing should be cached")
	}
}
