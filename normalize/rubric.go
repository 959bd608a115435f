package normalize

import (
	"github.com/rs/zerolog"
)

const (
	MinLevelPosition = 1
	MaxLevelPosition = 4
)

// Level is one performance level of a criterion.
type Level struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// Criterion is one row of a rubric.
type Criterion struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Position    int     `json:"position"`
	Levels      []Level `json:"levels"`
}

// RubricResult is a validated rubric.
type RubricResult struct {
	Criteria []Criterion `json:"criteria"`
}

// RubricNormalizer parses rubric generation output.
type RubricNormalizer struct {
	diag diagnostics
}

// NewRubricNormalizer creates a RubricNormalizer.
func NewRubricNormalizer(logger zerolog.Logger) *RubricNormalizer {
	return &RubricNormalizer{diag: newDiagnostics("rubric_generation", logger)}
}

// Parse implements Normalizer.
func (n *RubricNormalizer) Parse(subjectID, raw string) (RubricResult, error) {
	result, err := parseRubric(raw)
	if err != nil {
		n.diag.report(subjectID, raw, err)
		return RubricResult{}, err
	}
	return result, nil
}

func parseRubric(raw string) (RubricResult, error) {
	obj, err := DecodeObject(raw)
	if err != nil {
		return RubricResult{}, err
	}

	arr, path, err := requiredArray(obj, FieldCriteria, "")
	if err != nil {
		return RubricResult{}, err
	}
	if len(arr) == 0 {
		return RubricResult{}, newValidationError(ReasonInsufficientItems, FieldCriteria.Name(), path,
			"rubric must contain at least one criterion")
	}
	records, err := objects(arr, FieldCriteria, path)
	if err != nil {
		return RubricResult{}, err
	}

	criteria := make([]Criterion, 0, len(records))
	for i, rec := range records {
		c, err := parseCriterion(rec, indexPath(path, i))
		if err != nil {
			return RubricResult{}, err
		}
		c.Position = i + 1
		criteria = append(criteria, c)
	}
	return RubricResult{Criteria: criteria}, nil
}

func parseCriterion(obj map[string]any, path string) (Criterion, error) {
	title, err := requiredString(obj, FieldCriterionTitle, path)
	if err != nil {
		return Criterion{}, err
	}
	desc, err := requiredString(obj, FieldCriterionDesc, path)
	if err != nil {
		return Criterion{}, err
	}

	arr, levelsPath, err := requiredArray(obj, FieldLevels, path)
	if err != nil {
		return Criterion{}, err
	}
	if len(arr) == 0 {
		return Criterion{}, newValidationError(ReasonInsufficientItems, FieldLevels.Name(), levelsPath,
			"criterion %q must have at least one level", title)
	}
	records, err := objects(arr, FieldLevels, levelsPath)
	if err != nil {
		return Criterion{}, err
	}

	levels := make([]Level, 0, len(records))
	for i, rec := range records {
		lvlPath := indexPath(levelsPath, i)
		name, err := requiredString(rec, FieldLevelName, lvlPath)
		if err != nil {
			return Criterion{}, err
		}
		lvlDesc, err := requiredString(rec, FieldLevelDesc, lvlPath)
		if err != nil {
			return Criterion{}, err
		}
		pos, present, err := optionalInt(rec, FieldLevelPosition, lvlPath, MinLevelPosition, MaxLevelPosition)
		if err != nil {
			return Criterion{}, err
		}
		if !present {
			pos = InferPosition(i, len(records))
		}
		levels = append(levels, Level{Name: name, Description: lvlDesc, Position: pos})
	}

	return Criterion{Title: title, Description: desc, Levels: levels}, nil
}

// InferPosition assigns a position to the level at index i of n when the
// model gave none. Levels are assumed to be listed best first, so the first
// gets the highest position and later ones strictly lower, clamped to 1..4.
// Inference depends only on the index: explicit positions elsewhere in the
// list are kept as given and do not shift the inferred ones.
func InferPosition(i, n int) int {
	return max(MinLevelPosition, min(MaxLevelPosition, n-i))
}
