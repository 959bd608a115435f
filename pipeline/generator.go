package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/cost"
	"github.com/scribemark/feedback/llm"
	"github.com/scribemark/feedback/normalize"
)

// GenerationRequest is the input to a generation.
type GenerationRequest struct {
	Subject cost.Trackable // Entity the usage is billed to
	UserID  string
	Prompt  PromptBuilder
}

// ClientSource resolves the client for a use case.
type ClientSource interface {
	ClientFor(useCase llm.UseCase) (llm.Client, *llm.Route, error)
}

// UsageRecorder records the cost of a response.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, resp *llm.Response, trackable cost.Trackable, userID, requestType string) (*cost.UsageRecord, error)
}

// Generator runs one use case: prompt, request, one corrective retry when the
// reply is not JSON, usage recording and normalization.
type Generator[T any] struct {
	useCase    llm.UseCase
	clients    ClientSource
	usage      UsageRecorder
	normalizer normalize.Normalizer[T]
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGenerator creates a Generator for useCase.
func NewGenerator[T any](useCase llm.UseCase, clients ClientSource, usage UsageRecorder, normalizer normalize.Normalizer[T], logger zerolog.Logger) *Generator[T] {
	return &Generator[T]{
		useCase:    useCase,
		clients:    clients,
		usage:      usage,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "generator").Str("use_case", string(useCase)).Logger(),
		now:        time.Now,
	}
}

// Generate runs the pipeline. The returned Context is never nil and records
// the final state, attempts and per-stage timings.
func (g *Generator[T]) Generate(ctx context.Context, req GenerationRequest) (T, *Context, error) {
	var zero T
	pc := newContext(g.useCase, req, g.now)
	log := g.logger.With().Str("pipeline_id", pc.ID).Str("subject_id", req.Subject.ID).Logger()

	// Building prompt
	if req.Prompt == nil {
		return zero, pc, pc.fail(llm.NewPromptValidationError("prompt is required"))
	}
	prompt, err := req.Prompt.BuildPrompt()
	if err != nil {
		return zero, pc, pc.fail(err)
	}
	pc.Prompt = prompt
	if err := llm.ValidatePrompt(&llm.Request{Prompt: prompt}); err != nil {
		return zero, pc, pc.fail(err)
	}

	client, route, err := g.clients.ClientFor(g.useCase)
	if err != nil {
		return zero, pc, pc.fail(err)
	}
	pc.Provider = client.Provider()

	// Requesting
	pc.enter(StageRequesting)
	resp, err := g.request(ctx, pc, client, route, prompt)
	if err != nil {
		return zero, pc, pc.fail(err)
	}

	if !normalize.ValidJSON(resp.Text) {
		log.Warn().
			Str("preview", normalize.Preview(resp.Text)).
			Msg("Response is not valid JSON, retrying with corrective instruction")
		pc.enter(StageRetryingForJSON)
		resp, err = g.request(ctx, pc, client, route, withCorrection(prompt))
		if err != nil {
			return zero, pc, pc.fail(err)
		}
		if _, err := normalize.DecodeObject(resp.Text); normalize.IsSyntaxError(err) {
			log.Error().Err(err).Int("attempts", pc.Attempts).Msg("Response is still not valid JSON")
			return zero, pc, pc.fail(err)
		}
	}
	pc.Response = resp

	// Cost tracking
	pc.enter(StageCostTracking)
	usage, err := g.usage.RecordUsage(ctx, resp, req.Subject, req.UserID, string(g.useCase))
	if err != nil {
		return zero, pc, pc.fail(err)
	}
	pc.Usage = usage

	// Normalizing
	pc.enter(StageNormalizing)
	result, err := g.normalizer.Parse(req.Subject.ID, resp.Text)
	if err != nil {
		return zero, pc, pc.fail(err)
	}
	pc.Result = result
	pc.enter(StageDone)

	log.Info().
		Str("provider", pc.Provider).
		Str("model", resp.Model).
		Int("attempts", pc.Attempts).
		Int64("cost_micro_units", usage.CostMicroUnits).
		Dur("duration", pc.Duration()).
		Msg("Generation completed")
	return result, pc, nil
}

func (g *Generator[T]) request(ctx context.Context, pc *Context, client llm.Client, route *llm.Route, prompt string) (*llm.Response, error) {
	pc.Attempts++
	resp, err := client.Generate(ctx, &llm.Request{
		Prompt:      prompt,
		Model:       route.Key.Model,
		Temperature: route.Temperature,
		MaxTokens:   route.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, llm.NewRequestError(client.Provider(), "provider returned no response", 0, nil)
	}
	return resp, nil
}
