package normalize

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

const validStudentWork = `{
  "qualitative_feedback": "  A strong draft.  ",
  "feedback_items": [
    {"type": "Strength", "title": "Clear thesis", "description": "Stated early", "evidence": "para 1"},
    {"kind": "opportunity", "name": "Citations", "details": "Add sources"}
  ],
  "criterion_levels": [
    {"criterion_id": 12, "level_id": "lvl-3", "explanation": "Meets expectations"}
  ],
  "checks": [
    {"type": "plagiarism", "score": 5, "explanation": "Original"},
    {"type": "LLM_GENERATED", "probability": "12.5", "rationale": "Human voice"}
  ],
  "unexpected": {"ignored": true}
}`

func TestStudentWorkParse(t *testing.T) {
	got, err := NewStudentWorkNormalizer(zerolog.Nop()).Parse("sw-1", validStudentWork)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.QualitativeFeedback != "A strong draft." {
		t.Errorf("QualitativeFeedback = %q", got.QualitativeFeedback)
	}
	if len(got.FeedbackItems) != 2 {
		t.Fatalf("items = %+v", got.FeedbackItems)
	}
	if got.FeedbackItems[0].Type != FeedbackStrength || got.FeedbackItems[0].Evidence != "para 1" {
		t.Errorf("item 0 = %+v", got.FeedbackItems[0])
	}
	if got.FeedbackItems[1].Type != FeedbackOpportunity || got.FeedbackItems[1].Title != "Citations" || got.FeedbackItems[1].Evidence != "" {
		t.Errorf("item 1 = %+v", got.FeedbackItems[1])
	}
	if got.CriterionLevels[0].CriterionID != "12" || got.CriterionLevels[0].LevelID != "lvl-3" {
		t.Errorf("criterion level = %+v", got.CriterionLevels[0])
	}
	if got.Checks[1].Type != CheckLLMGenerated || got.Checks[1].Score != 12.5 || got.Checks[1].Explanation != "Human voice" {
		t.Errorf("check 1 = %+v", got.Checks[1])
	}
}

func TestStudentWorkValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason Reason
		field  string
	}{
		{"missing checks", `{"qualitative_feedback":"x","feedback_items":[],"criterion_levels":[]}`, ReasonMissingField, "checks"},
		{"missing qualitative", `{"feedback_items":[],"criterion_levels":[],"checks":[]}`, ReasonMissingField, "qualitative_feedback"},
		{"bad item type", `{"qualitative_feedback":"x","feedback_items":[{"type":"praise","title":"t","description":"d"}],"criterion_levels":[],"checks":[]}`, ReasonInvalidEnum, "type"},
		{"bad check type", `{"qualitative_feedback":"x","feedback_items":[],"criterion_levels":[],"checks":[{"type":"grammar","score":1,"explanation":"e"}]}`, ReasonInvalidEnum, "type"},
		{"score too high", `{"qualitative_feedback":"x","feedback_items":[],"criterion_levels":[],"checks":[{"type":"plagiarism","score":101,"explanation":"e"}]}`, ReasonOutOfRange, "score"},
		{"negative score", `{"qualitative_feedback":"x","feedback_items":[],"criterion_levels":[],"checks":[{"type":"plagiarism","score":-1,"explanation":"e"}]}`, ReasonOutOfRange, "score"},
		{"score not numeric", `{"qualitative_feedback":"x","feedback_items":[],"criterion_levels":[],"checks":[{"type":"plagiarism","score":"high","explanation":"e"}]}`, ReasonInvalidType, "score"},
		{"missing level id", `{"qualitative_feedback":"x","feedback_items":[],"criterion_levels":[{"criterion_id":"c","explanation":"e"}],"checks":[]}`, ReasonMissingField, "level_id"},
		{"items not array", `{"qualitative_feedback":"x","feedback_items":"none","criterion_levels":[],"checks":[]}`, ReasonInvalidType, "feedback_items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStudentWorkNormalizer(zerolog.Nop()).Parse("sw-1", tt.raw)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Reason != tt.reason || ve.Field != tt.field {
				t.Errorf("got reason=%s field=%s, want %s/%s (%v)", ve.Reason, ve.Field, tt.reason, tt.field, err)
			}
			if Category(err) != string(tt.reason) {
				t.Errorf("Category() = %q", Category(err))
			}
		})
	}
}
