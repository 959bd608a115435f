package normalize

import (
	"github.com/rs/zerolog"
)

const (
	FeedbackStrength    = "strength"
	FeedbackOpportunity = "opportunity"

	CheckPlagiarism   = "plagiarism"
	CheckLLMGenerated = "llm_generated"
)

var (
	feedbackTypes = []string{FeedbackStrength, FeedbackOpportunity}
	checkTypes    = []string{CheckPlagiarism, CheckLLMGenerated}
)

// FeedbackItem is a single strength or opportunity.
type FeedbackItem struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Evidence    string `json:"evidence,omitempty"`
}

// CriterionLevel is the level chosen for one rubric criterion.
type CriterionLevel struct {
	CriterionID string `json:"criterion_id"`
	LevelID     string `json:"level_id"`
	Explanation string `json:"explanation"`
}

// Check is an integrity check result. Score is 0..100.
type Check struct {
	Type        string  `json:"type"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// StudentWorkResult is validated feedback for a piece of student work.
type StudentWorkResult struct {
	QualitativeFeedback string           `json:"qualitative_feedback"`
	FeedbackItems       []FeedbackItem   `json:"feedback_items"`
	CriterionLevels     []CriterionLevel `json:"criterion_levels"`
	Checks              []Check          `json:"checks"`
}

// StudentWorkNormalizer parses student work feedback output.
type StudentWorkNormalizer struct {
	diag diagnostics
}

// NewStudentWorkNormalizer creates a StudentWorkNormalizer.
func NewStudentWorkNormalizer(logger zerolog.Logger) *StudentWorkNormalizer {
	return &StudentWorkNormalizer{diag: newDiagnostics("student_work_feedback", logger)}
}

// Parse implements Normalizer.
func (n *StudentWorkNormalizer) Parse(subjectID, raw string) (StudentWorkResult, error) {
	result, err := parseStudentWork(raw)
	if err != nil {
		n.diag.report(subjectID, raw, err)
		return StudentWorkResult{}, err
	}
	return result, nil
}

func parseStudentWork(raw string) (StudentWorkResult, error) {
	obj, err := DecodeObject(raw)
	if err != nil {
		return StudentWorkResult{}, err
	}

	qualitative, err := requiredString(obj, FieldQualitativeFeedback, "")
	if err != nil {
		return StudentWorkResult{}, err
	}
	items, err := parseFeedbackItems(obj)
	if err != nil {
		return StudentWorkResult{}, err
	}
	levels, err := parseCriterionLevels(obj)
	if err != nil {
		return StudentWorkResult{}, err
	}
	checks, err := parseChecks(obj)
	if err != nil {
		return StudentWorkResult{}, err
	}

	return StudentWorkResult{
		QualitativeFeedback: qualitative,
		FeedbackItems:       items,
		CriterionLevels:     levels,
		Checks:              checks,
	}, nil
}

func parseFeedbackItems(obj map[string]any) ([]FeedbackItem, error) {
	arr, path, err := requiredArray(obj, FieldFeedbackItems, "")
	if err != nil {
		return nil, err
	}
	records, err := objects(arr, FieldFeedbackItems, path)
	if err != nil {
		return nil, err
	}

	items := make([]FeedbackItem, 0, len(records))
	for i, rec := range records {
		p := indexPath(path, i)
		typ, err := enumValue(rec, FieldItemType, p, feedbackTypes)
		if err != nil {
			return nil, err
		}
		title, err := requiredString(rec, FieldItemTitle, p)
		if err != nil {
			return nil, err
		}
		desc, err := requiredString(rec, FieldItemDesc, p)
		if err != nil {
			return nil, err
		}
		evidence, err := optionalString(rec, FieldItemEvidence, p)
		if err != nil {
			return nil, err
		}
		items = append(items, FeedbackItem{Type: typ, Title: title, Description: desc, Evidence: evidence})
	}
	return items, nil
}

func parseCriterionLevels(obj map[string]any) ([]CriterionLevel, error) {
	arr, path, err := requiredArray(obj, FieldCriterionLevels, "")
	if err != nil {
		return nil, err
	}
	records, err := objects(arr, FieldCriterionLevels, path)
	if err != nil {
		return nil, err
	}

	out := make([]CriterionLevel, 0, len(records))
	for i, rec := range records {
		p := indexPath(path, i)
		criterionID, err := identifier(rec, FieldCriterionID, p)
		if err != nil {
			return nil, err
		}
		levelID, err := identifier(rec, FieldLevelID, p)
		if err != nil {
			return nil, err
		}
		explanation, err := requiredString(rec, FieldLevelExplanation, p)
		if err != nil {
			return nil, err
		}
		out = append(out, CriterionLevel{CriterionID: criterionID, LevelID: levelID, Explanation: explanation})
	}
	return out, nil
}

func parseChecks(obj map[string]any) ([]Check, error) {
	arr, path, err := requiredArray(obj, FieldChecks, "")
	if err != nil {
		return nil, err
	}
	records, err := objects(arr, FieldChecks, path)
	if err != nil {
		return nil, err
	}

	out := make([]Check, 0, len(records))
	for i, rec := range records {
		p := indexPath(path, i)
		typ, err := enumValue(rec, FieldCheckType, p, checkTypes)
		if err != nil {
			return nil, err
		}
		score, err := requiredNumber(rec, FieldCheckScore, p, 0, 100)
		if err != nil {
			return nil, err
		}
		explanation, err := requiredString(rec, FieldCheckExplanation, p)
		if err != nil {
			return nil, err
		}
		out = append(out, Check{Type: typ, Score: score, Explanation: explanation})
	}
	return out, nil
}
