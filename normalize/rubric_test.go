package normalize

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestRubricInfersPositionsBestFirst(t *testing.T) {
	raw := `{"criteria":[{"title":"T","description":"D","levels":[{"name":"A","description":"d1"},{"name":"B","description":"d2"}]}]}`
	got, err := NewRubricNormalizer(zerolog.Nop()).Parse("as-1", raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	levels := got.Criteria[0].Levels
	if levels[0].Name != "A" || levels[0].Position != 2 {
		t.Errorf("level A = %+v, want position 2", levels[0])
	}
	if levels[1].Name != "B" || levels[1].Position != 1 {
		t.Errorf("level B = %+v, want position 1", levels[1])
	}
	if got.Criteria[0].Position != 1 {
		t.Errorf("criterion position = %d", got.Criteria[0].Position)
	}
}

func TestInferPositionClamps(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{0, 4, 4}, {3, 4, 1},
		{0, 6, 4}, {1, 6, 4}, {2, 6, 4}, {4, 6, 2}, {5, 6, 1},
		{0, 1, 1},
	}
	for _, tt := range tests {
		if got := InferPosition(tt.i, tt.n); got != tt.want {
			t.Errorf("InferPosition(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestRubricMixedPositionsInferByIndex(t *testing.T) {
	raw := `{"criteria":[{"title":"T","description":"D","levels":[{"name":"A","description":"d1"},{"name":"B","description":"d2","position":3}]}]}`
	got, err := NewRubricNormalizer(zerolog.Nop()).Parse("as-1", raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	levels := got.Criteria[0].Levels
	if levels[0].Position != 2 {
		t.Errorf("level A position = %d, want 2 inferred from index", levels[0].Position)
	}
	if levels[1].Position != 3 {
		t.Errorf("level B position = %d, want explicit 3", levels[1].Position)
	}
}

func TestRubricAliasesAndTrimming(t *testing.T) {
	raw := "```json\n" + `{
  "criteria": [
    {
      "criterion": "  Thesis  ",
      "details": "Clear claim",
      "extra": true,
      "descriptors": [
        {"grade": "Exemplary", "descriptor": " Precise ", "position": 4},
        {"level": "Developing", "description": "Vague", "position": "2"}
      ]
    },
    {"name": "Evidence", "description": "Supports claim", "levels": [{"name": "Ok", "description": "fine", "rank": 3}]}
  ]
}` + "\n```"

	got, err := NewRubricNormalizer(zerolog.Nop()).Parse("as-1", raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(got.Criteria) != 2 {
		t.Fatalf("criteria = %d", len(got.Criteria))
	}
	c := got.Criteria[0]
	if c.Title != "Thesis" || c.Description != "Clear claim" {
		t.Errorf("criterion = %+v", c)
	}
	if c.Levels[0].Name != "Exemplary" || c.Levels[0].Description != "Precise" || c.Levels[0].Position != 4 {
		t.Errorf("level 0 = %+v", c.Levels[0])
	}
	if c.Levels[1].Name != "Developing" || c.Levels[1].Position != 2 {
		t.Errorf("level 1 = %+v", c.Levels[1])
	}
	if got.Criteria[1].Title != "Evidence" || got.Criteria[1].Position != 2 || got.Criteria[1].Levels[0].Position != 3 {
		t.Errorf("criterion 1 = %+v", got.Criteria[1])
	}
}

func TestRubricValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason Reason
		field  string
	}{
		{"missing criteria", `{"rubric": []}`, ReasonMissingField, "criteria"},
		{"criteria not array", `{"criteria": {}}`, ReasonInvalidType, "criteria"},
		{"empty criteria", `{"criteria": []}`, ReasonInsufficientItems, "criteria"},
		{"criterion not object", `{"criteria": ["x"]}`, ReasonInvalidType, "criteria"},
		{"blank title", `{"criteria":[{"title":"  ","description":"D","levels":[{"name":"A","description":"d"}]}]}`, ReasonBlankField, "title"},
		{"missing levels", `{"criteria":[{"title":"T","description":"D"}]}`, ReasonMissingField, "levels"},
		{"position too high", `{"criteria":[{"title":"T","description":"D","levels":[{"name":"A","description":"d","position":5}]}]}`, ReasonOutOfRange, "position"},
		{"position zero", `{"criteria":[{"title":"T","description":"D","levels":[{"name":"A","description":"d","position":0}]}]}`, ReasonOutOfRange, "position"},
		{"fractional position", `{"criteria":[{"title":"T","description":"D","levels":[{"name":"A","description":"d","position":2.5}]}]}`, ReasonInvalidType, "position"},
		{"title wrong type", `{"criteria":[{"title":7,"description":"D","levels":[]}]}`, ReasonInvalidType, "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRubricNormalizer(zerolog.Nop()).Parse("as-1", tt.raw)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Reason != tt.reason || ve.Field != tt.field {
				t.Errorf("got reason=%s field=%s, want %s/%s (%v)", ve.Reason, ve.Field, tt.reason, tt.field, err)
			}
		})
	}
}

func TestRubricBlankPathNamesField(t *testing.T) {
	raw := `{"criteria":[{"title":"T","description":"D","levels":[{"name":"A","description":"d"},{"name":"","description":"d"}]}]}`
	_, err := NewRubricNormalizer(zerolog.Nop()).Parse("as-1", raw)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v", err)
	}
	if ve.Path != "criteria[0].levels[1].name" {
		t.Errorf("Path = %q", ve.Path)
	}
}
