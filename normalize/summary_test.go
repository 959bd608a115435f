package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSummaryParse(t *testing.T) {
	raw := `{"qualitative_insights":"Class did well","feedback_items":[
		{"type":"strength","title":"Structure","description":"Good flow"},
		{"type":"opportunity","title":"Sources","description":"Cite more"}]}`
	got, err := NewSummaryNormalizer(zerolog.Nop()).Parse("as-1", raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.QualitativeInsights != "Class did well" || len(got.FeedbackItems) != 2 {
		t.Errorf("result = %+v", got)
	}
}

func TestSummaryRequiresOpportunity(t *testing.T) {
	raw := `{"qualitative_insights":"ok","feedback_items":[
		{"type":"strength","title":"A","description":"a"},
		{"type":"strength","title":"B","description":"b"}]}`
	_, err := NewSummaryNormalizer(zerolog.Nop()).Parse("as-1", raw)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !strings.Contains(err.Error(), "at least one opportunity") {
		t.Errorf("error = %q", err.Error())
	}
	if ve.Reason != ReasonInsufficientItems {
		t.Errorf("Reason = %s", ve.Reason)
	}
}

func TestSummaryRequiresStrength(t *testing.T) {
	raw := `{"qualitative_insights":"ok","feedback_items":[
		{"type":"opportunity","title":"A","description":"a"},
		{"type":"opportunity","title":"B","description":"b"}]}`
	_, err := NewSummaryNormalizer(zerolog.Nop()).Parse("as-1", raw)
	if err == nil || !strings.Contains(err.Error(), "at least one strength") {
		t.Errorf("err = %v", err)
	}
}

func TestSummaryRequiresTwoItems(t *testing.T) {
	raw := `{"qualitative_insights":"ok","feedback_items":[{"type":"strength","title":"A","description":"a"}]}`
	_, err := NewSummaryNormalizer(zerolog.Nop()).Parse("as-1", raw)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Reason != ReasonInsufficientItems {
		t.Errorf("err = %v", err)
	}
}

func TestParseFailureLogsDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	n := NewSummaryNormalizer(zerolog.New(&buf))
	raw := `{"qualitative_insights":"ok","feedback_items":[{"type":"strength","title":"A","description":"a"},{"type":"strength","title":"B","description":"b"}]}`
	if _, err := n.Parse("as-42", raw); err == nil {
		t.Fatal("expected error")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]string{
		"subject_id": "as-42",
		"use_case":   "assignment_summary_feedback",
		"category":   "insufficient_items",
		"field":      "feedback_items",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("log %s = %v, want %s", k, entry[k], v)
		}
	}
	if entry["preview"] != raw {
		t.Errorf("preview = %v", entry["preview"])
	}
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("é", 250)
	p := Preview(long)
	if len([]rune(p)) != previewLength+3 {
		t.Errorf("preview length = %d", len([]rune(p)))
	}
	if Preview("short") != "short" {
		t.Error("short input should be unchanged")
	}
}
