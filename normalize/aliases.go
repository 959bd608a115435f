package normalize

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Field is a logical field name. Models name the same concept in different
// ways; each Field lists the keys accepted for it, in priority order.
type Field string

const (
	FieldCriteria            Field = "criteria"
	FieldCriterionTitle      Field = "criterion.title"
	FieldCriterionDesc       Field = "criterion.description"
	FieldLevels              Field = "criterion.levels"
	FieldLevelName           Field = "level.name"
	FieldLevelDesc           Field = "level.description"
	FieldLevelPosition       Field = "level.position"
	FieldQualitativeFeedback Field = "qualitative_feedback"
	FieldQualitativeInsights Field = "qualitative_insights"
	FieldFeedbackItems       Field = "feedback_items"
	FieldItemType            Field = "item.type"
	FieldItemTitle           Field = "item.title"
	FieldItemDesc            Field = "item.description"
	FieldItemEvidence        Field = "item.evidence"
	FieldCriterionLevels     Field = "criterion_levels"
	FieldCriterionID         Field = "criterion_level.criterion_id"
	FieldLevelID             Field = "criterion_level.level_id"
	FieldLevelExplanation    Field = "criterion_level.explanation"
	FieldChecks              Field = "checks"
	FieldCheckType           Field = "check.type"
	FieldCheckScore          Field = "check.score"
	FieldCheckExplanation    Field = "check.explanation"
)

// Aliases maps each logical field to the keys accepted for it.
var Aliases = map[Field][]string{
	FieldCriteria:            {"criteria", "rubric_criteria"},
	FieldCriterionTitle:      {"title", "criterion", "name"},
	FieldCriterionDesc:       {"description", "details"},
	FieldLevels:              {"levels", "descriptors"},
	FieldLevelName:           {"name", "level", "grade", "score"},
	FieldLevelDesc:           {"description", "descriptor"},
	FieldLevelPosition:       {"position", "rank"},
	FieldQualitativeFeedback: {"qualitative_feedback", "overall_feedback", "feedback"},
	FieldQualitativeInsights: {"qualitative_insights", "insights"},
	FieldFeedbackItems:       {"feedback_items", "items"},
	FieldItemType:            {"type", "kind", "category"},
	FieldItemTitle:           {"title", "name"},
	FieldItemDesc:            {"description", "details"},
	FieldItemEvidence:        {"evidence", "quote"},
	FieldCriterionLevels:     {"criterion_levels", "criteria_levels"},
	FieldCriterionID:         {"criterion_id", "criterion"},
	FieldLevelID:             {"level_id", "level"},
	FieldLevelExplanation:    {"explanation", "rationale", "reason"},
	FieldChecks:              {"checks"},
	FieldCheckType:           {"type", "check", "kind"},
	FieldCheckScore:          {"score", "probability", "likelihood"},
	FieldCheckExplanation:    {"explanation", "rationale", "reason"},
}

// Name returns the display name of a field: its first alias.
func (f Field) Name() string {
	if aliases := Aliases[f]; len(aliases) > 0 {
		return aliases[0]
	}
	return string(f)
}

// Resolve returns the value for field in obj. The first alias present as an
// exact key wins; failing that, the first alias matching a key
// case-insensitively wins.
func Resolve(obj map[string]any, field Field) (key string, value any, ok bool) {
	aliases := Aliases[field]
	for _, alias := range aliases {
		if v, found := obj[alias]; found {
			return alias, v, true
		}
	}

	keys := lo.Keys(obj)
	sort.Strings(keys)
	for _, alias := range aliases {
		k, found := lo.Find(keys, func(k string) bool {
			return strings.EqualFold(strings.TrimSpace(k), alias)
		})
		if found {
			return k, obj[k], true
		}
	}
	return "", nil, false
}
