package llm

import (
	"encoding/json"
)

// UseCase identifies which feedback flow a request belongs to.
// The ClientFactory selects a provider and model per use case.
type UseCase string

const (
	UseCaseRubricGeneration          UseCase = "rubric_generation"
	UseCaseStudentWorkFeedback       UseCase = "student_work_feedback"
	UseCaseAssignmentSummaryFeedback UseCase = "assignment_summary_feedback"
)

// UseCases returns all known use cases in a stable order.
func UseCases() []UseCase {
	return []UseCase{
		UseCaseRubricGeneration,
		UseCaseStudentWorkFeedback,
		UseCaseAssignmentSummaryFeedback,
	}
}

// Valid reports whether u is a known use case.
func (u UseCase) Valid() bool {
	switch u {
	case UseCaseRubricGeneration, UseCaseStudentWorkFeedback, UseCaseAssignmentSummaryFeedback:
		return true
	}
	return false
}

// Request represents a single generation request.
type Request struct {
	Prompt      string
	Model       string   // Optional; falls back to the client's default
	Temperature *float64 // Optional temperature override
	MaxTokens   int64    // Optional; providers apply their own default when zero
}

// Response is the provider-neutral result of a generation call.
// It is never mutated after a client returns it.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// TotalTokens returns the sum of input and output tokens.
func (r *Response) TotalTokens() int64 {
	if r == nil {
		return 0
	}
	return r.InputTokens + r.OutputTokens
}

// ToJSON marshals a response to JSON for debugging/logging purposes.
func (r *Response) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// Float64 returns a pointer to v. Handy for Request.Temperature.
func Float64(v float64) *float64 {
	return &v
}
