package normalize

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeObjectSyntaxErrorPosition(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLine int
		wantCol  int
	}{
		{"first line", `{"a": ]}`, 1, 7},
		{"second line", "{\n  \"a\": ]\n}", 2, 8},
		{"inside fence", "```json\n{\n  \"a\": ]\n}\n```", 2, 8},
		{"trailing garbage", `{"a": 1} x`, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeObject(tt.in)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *SyntaxError", err)
			}
			if se.Line != tt.wantLine || se.Column != tt.wantCol {
				t.Errorf("position = %d:%d, want %d:%d", se.Line, se.Column, tt.wantLine, tt.wantCol)
			}
			if Category(err) != CategoryJSONSyntax {
				t.Errorf("Category() = %q", Category(err))
			}
		})
	}
}

func TestDecodeObjectTruncated(t *testing.T) {
	_, err := DecodeObject(`{"a": [1, 2`)
	if !IsSyntaxError(err) {
		t.Fatalf("err = %v, want syntax error", err)
	}
	if _, err := DecodeObject(""); !IsSyntaxError(err) {
		t.Errorf("empty input: err = %v", err)
	}
}

func TestDecodeObjectRejectsNonObject(t *testing.T) {
	_, err := DecodeObject(`[{"a":1}]`)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Reason != ReasonNotAnObject {
		t.Errorf("Reason = %s", ve.Reason)
	}
}

func TestDecodeObjectKeepsNumbers(t *testing.T) {
	obj, err := DecodeObject(`{"n": 3}`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj["n"].(json.Number); !ok {
		t.Errorf("n = %T, want json.Number", obj["n"])
	}
}

func TestValidJSON(t *testing.T) {
	if !ValidJSON("```json\n{\"a\":1}\n```") {
		t.Error("fenced JSON should be valid")
	}
	if ValidJSON("Sure! Here is your rubric: {") {
		t.Error("prose should be invalid")
	}
}
