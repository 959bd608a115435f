package normalize

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// MinSummaryItems is the minimum number of feedback items in a summary.
const MinSummaryItems = 2

// AssignmentSummaryResult is validated feedback across all submissions of an assignment.
type AssignmentSummaryResult struct {
	QualitativeInsights string         `json:"qualitative_insights"`
	FeedbackItems       []FeedbackItem `json:"feedback_items"`
}

// SummaryNormalizer parses assignment summary output.
type SummaryNormalizer struct {
	diag diagnostics
}

// NewSummaryNormalizer creates a SummaryNormalizer.
func NewSummaryNormalizer(logger zerolog.Logger) *SummaryNormalizer {
	return &SummaryNormalizer{diag: newDiagnostics("assignment_summary_feedback", logger)}
}

// Parse implements Normalizer.
func (n *SummaryNormalizer) Parse(subjectID, raw string) (AssignmentSummaryResult, error) {
	result, err := parseSummary(raw)
	if err != nil {
		n.diag.report(subjectID, raw, err)
		return AssignmentSummaryResult{}, err
	}
	return result, nil
}

func parseSummary(raw string) (AssignmentSummaryResult, error) {
	obj, err := DecodeObject(raw)
	if err != nil {
		return AssignmentSummaryResult{}, err
	}

	insights, err := requiredString(obj, FieldQualitativeInsights, "")
	if err != nil {
		return AssignmentSummaryResult{}, err
	}
	items, err := parseFeedbackItems(obj)
	if err != nil {
		return AssignmentSummaryResult{}, err
	}

	field := FieldFeedbackItems.Name()
	if len(items) < MinSummaryItems {
		return AssignmentSummaryResult{}, newValidationError(ReasonInsufficientItems, field, field,
			"summary must have at least %d feedback items, got %d", MinSummaryItems, len(items))
	}
	counts := lo.CountValuesBy(items, func(it FeedbackItem) string { return it.Type })
	if counts[FeedbackStrength] == 0 {
		return AssignmentSummaryResult{}, newValidationError(ReasonInsufficientItems, field, field,
			"summary must include at least one strength")
	}
	if counts[FeedbackOpportunity] == 0 {
		return AssignmentSummaryResult{}, newValidationError(ReasonInsufficientItems, field, field,
			"summary must include at least one opportunity")
	}

	return AssignmentSummaryResult{QualitativeInsights: insights, FeedbackItems: items}, nil
}
