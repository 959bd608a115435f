package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scribemark/feedback/cost"
	"github.com/scribemark/feedback/ledger"
	"github.com/scribemark/feedback/llm"
	"github.com/scribemark/feedback/normalize"
	"github.com/scribemark/feedback/resilience"
)

// ResultSink stores validated results.
type ResultSink interface {
	SaveResult(ctx context.Context, r ledger.Result) error
}

// Options wires a Service.
type Options struct {
	Catalog   *llm.Catalog
	Providers *llm.ProviderConfig
	Breaker   resilience.BreakerSettings
	Retry     resilience.RetryConfig
	Throttle  resilience.ThrottleConfig
	Ledger    cost.Ledger
	Sink      ResultSink // Optional

	FactoryOptions []FactoryOption
}

// Service is the long-lived owner of the breaker registry, retry policy,
// client factory, cost accountant and normalizers. Create one per process.
type Service struct {
	guard      *resilience.Guard
	factory    *ClientFactory
	accountant *cost.Accountant
	sink       ResultSink
	logger     zerolog.Logger

	rubric      *Generator[normalize.RubricResult]
	studentWork *Generator[normalize.StudentWorkResult]
	summary     *Generator[normalize.AssignmentSummaryResult]
}

// NewService creates a Service.
func NewService(opts Options, logger zerolog.Logger) (*Service, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("usage ledger is required")
	}

	guard := resilience.NewGuard(
		resilience.NewBreakers(opts.Breaker, logger),
		resilience.NewRetryPolicy(opts.Retry, logger),
		resilience.NewThrottle(opts.Throttle),
		logger,
	)
	registry := llm.NewProviderRegistry(opts.Providers, opts.Catalog)
	factory := NewClientFactory(registry, opts.Catalog, guard, logger, opts.FactoryOptions...)
	accountant := cost.NewAccountant(opts.Catalog, opts.Ledger, logger)

	return &Service{
		guard:       guard,
		factory:     factory,
		accountant:  accountant,
		sink:        opts.Sink,
		logger:      logger.With().Str("component", "pipelineService").Logger(),
		rubric:      NewGenerator(llm.UseCaseRubricGeneration, factory, accountant, normalize.Normalizer[normalize.RubricResult](normalize.NewRubricNormalizer(logger)), logger),
		studentWork: NewGenerator(llm.UseCaseStudentWorkFeedback, factory, accountant, normalize.Normalizer[normalize.StudentWorkResult](normalize.NewStudentWorkNormalizer(logger)), logger),
		summary:     NewGenerator(llm.UseCaseAssignmentSummaryFeedback, factory, accountant, normalize.Normalizer[normalize.AssignmentSummaryResult](normalize.NewSummaryNormalizer(logger)), logger),
	}, nil
}

// GenerateRubric generates a rubric for an assignment.
func (s *Service) GenerateRubric(ctx context.Context, req GenerationRequest) (normalize.RubricResult, *Context, error) {
	result, pc, err := s.rubric.Generate(ctx, req)
	if err != nil {
		return normalize.RubricResult{}, pc, err
	}
	if err := s.store(ctx, pc); err != nil {
		return normalize.RubricResult{}, pc, err
	}
	return result, pc, nil
}

// GenerateStudentWorkFeedback generates feedback for one student submission.
func (s *Service) GenerateStudentWorkFeedback(ctx context.Context, req GenerationRequest) (normalize.StudentWorkResult, *Context, error) {
	result, pc, err := s.studentWork.Generate(ctx, req)
	if err != nil {
		return normalize.StudentWorkResult{}, pc, err
	}
	if err := s.store(ctx, pc); err != nil {
		return normalize.StudentWorkResult{}, pc, err
	}
	return result, pc, nil
}

// GenerateAssignmentSummary generates class-level feedback for an assignment.
func (s *Service) GenerateAssignmentSummary(ctx context.Context, req GenerationRequest) (normalize.AssignmentSummaryResult, *Context, error) {
	result, pc, err := s.summary.Generate(ctx, req)
	if err != nil {
		return normalize.AssignmentSummaryResult{}, pc, err
	}
	if err := s.store(ctx, pc); err != nil {
		return normalize.AssignmentSummaryResult{}, pc, err
	}
	return result, pc, nil
}

// BreakerStates returns a snapshot of every provider's circuit.
func (s *Service) BreakerStates() []resilience.CircuitState {
	return s.guard.Breakers().Snapshots()
}

// Accountant returns the cost accountant.
func (s *Service) Accountant() *cost.Accountant {
	return s.accountant
}

// Factory returns the client factory.
func (s *Service) Factory() *ClientFactory {
	return s.factory
}

func (s *Service) store(ctx context.Context, pc *Context) error {
	if s.sink == nil {
		return nil
	}
	r := ledger.Result{
		ID:          pc.ID,
		UseCase:     string(pc.UseCase),
		SubjectType: pc.Subject.Type,
		SubjectID:   pc.Subject.ID,
		UserID:      pc.UserID,
		Payload:     pc.Result,
		CreatedAt:   pc.EndedAt,
	}
	if pc.Response != nil {
		r.Model = pc.Response.Model
	}
	if pc.Usage != nil {
		r.UsageID = pc.Usage.ID
	}
	if err := s.sink.SaveResult(ctx, r); err != nil {
		s.logger.Error().Err(err).Str("pipeline_id", pc.ID).Msg("Failed to store generation result")
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}
