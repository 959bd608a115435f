package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// DecodeObject strips any code fence from raw and decodes it as a JSON object.
// Numbers are kept as json.Number.
func DecodeObject(raw string) (map[string]any, error) {
	text := StripCodeFence(raw)
	data := []byte(text)

	// Unmarshal validates the whole input first, which gives a byte offset
	// for syntax errors including trailing garbage.
	var probe json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, syntaxErrorFrom(text, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, syntaxErrorFrom(text, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, newValidationError(ReasonNotAnObject, "", "", "expected a JSON object, got %s", typeName(v))
	}
	return obj, nil
}

// ValidJSON reports whether raw (after fence stripping) is syntactically valid JSON.
func ValidJSON(raw string) bool {
	return json.Valid([]byte(StripCodeFence(raw)))
}

func syntaxErrorFrom(text string, err error) *SyntaxError {
	var jsonErr *json.SyntaxError
	offset := int64(len(text))
	if errors.As(err, &jsonErr) {
		offset = jsonErr.Offset
	}
	line, col := lineColumn(text, offset)
	return &SyntaxError{
		Line:   line,
		Column: col,
		Offset: offset,
		Msg:    err.Error(),
		Err:    err,
	}
}

// lineColumn locates the byte just before offset, which is the byte the
// decoder rejected.
func lineColumn(text string, offset int64) (int, int) {
	idx := int(offset) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(text) {
		idx = len(text)
	}
	before := text[:idx]
	line := strings.Count(before, "\n") + 1
	col := idx - strings.LastIndexByte(before, '\n')
	return line, col
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
