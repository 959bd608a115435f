package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

func childPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

// requiredString resolves field and returns its trimmed, non-blank value.
func requiredString(obj map[string]any, field Field, path string) (string, error) {
	key, v, ok := Resolve(obj, field)
	if !ok || v == nil {
		return "", newValidationError(ReasonMissingField, field.Name(), childPath(path, field.Name()),
			"missing required field %q", field.Name())
	}
	s, ok := v.(string)
	if !ok {
		return "", newValidationError(ReasonInvalidType, field.Name(), childPath(path, key),
			"field %q must be a string, got %s", key, typeName(v))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", newValidationError(ReasonBlankField, field.Name(), childPath(path, key),
			"field %q must not be blank", key)
	}
	return s, nil
}

// optionalString returns the trimmed value of field, or "" when absent or null.
func optionalString(obj map[string]any, field Field, path string) (string, error) {
	key, v, ok := Resolve(obj, field)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", newValidationError(ReasonInvalidType, field.Name(), childPath(path, key),
			"field %q must be a string, got %s", key, typeName(v))
	}
	return strings.TrimSpace(s), nil
}

// identifier accepts a non-blank string or an integer and returns it as a string.
func identifier(obj map[string]any, field Field, path string) (string, error) {
	key, v, ok := Resolve(obj, field)
	if ok {
		if n, isNum := v.(json.Number); isNum {
			if i, err := n.Int64(); err == nil {
				return strconv.FormatInt(i, 10), nil
			}
			return "", newValidationError(ReasonInvalidType, field.Name(), childPath(path, key),
				"field %q must be an identifier, got %s", key, n.String())
		}
	}
	return requiredString(obj, field, path)
}

// requiredArray resolves field and returns its elements.
func requiredArray(obj map[string]any, field Field, path string) ([]any, string, error) {
	key, v, ok := Resolve(obj, field)
	if !ok || v == nil {
		return nil, "", newValidationError(ReasonMissingField, field.Name(), childPath(path, field.Name()),
			"missing required field %q", field.Name())
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, "", newValidationError(ReasonInvalidType, field.Name(), childPath(path, key),
			"field %q must be an array, got %s", key, typeName(v))
	}
	return arr, childPath(path, key), nil
}

// objects asserts every element of arr is an object.
func objects(arr []any, field Field, path string) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, newValidationError(ReasonInvalidType, field.Name(), indexPath(path, i),
				"%s entries must be objects, got %s", field.Name(), typeName(el))
		}
		out = append(out, obj)
	}
	return out, nil
}

// number reads a JSON number or a numeric string.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// optionalInt reads an integer field within [lower, upper]. present is false when
// the field is absent or null.
func optionalInt(obj map[string]any, field Field, path string, lower, upper int) (value int, present bool, err error) {
	key, v, ok := Resolve(obj, field)
	if !ok || v == nil {
		return 0, false, nil
	}
	f, isNum := number(v)
	if !isNum || math.Trunc(f) != f {
		return 0, true, newValidationError(ReasonInvalidType, field.Name(), childPath(path, key),
			"field %q must be an integer, got %v", key, v)
	}
	if f < float64(lower) || f > float64(upper) {
		return 0, true, newValidationError(ReasonOutOfRange, field.Name(), childPath(path, key),
			"field %q must be between %d and %d, got %v", key, lower, upper, f)
	}
	return int(f), true, nil
}

// requiredNumber reads a number field within [lower, upper].
func requiredNumber(obj map[string]any, field Field, path string, lower, upper float64) (float64, error) {
	key, v, ok := Resolve(obj, field)
	if !ok || v == nil {
		return 0, newValidationError(ReasonMissingField, field.Name(), childPath(path, field.Name()),
			"missing required field %q", field.Name())
	}
	f, isNum := number(v)
	if !isNum || math.IsNaN(f) {
		return 0, newValidationError(ReasonInvalidType, field.Name(), childPath(path, key),
			"field %q must be a number, got %v", key, v)
	}
	if f < lower || f > upper {
		return 0, newValidationError(ReasonOutOfRange, field.Name(), childPath(path, key),
			"field %q must be between %g and %g, got %g", key, lower, upper, f)
	}
	return f, nil
}

// enumValue reads a required string field and checks it against allowed,
// case-insensitively. The canonical (lowercase) value is returned.
func enumValue(obj map[string]any, field Field, path string, allowed []string) (string, error) {
	s, err := requiredString(obj, field, path)
	if err != nil {
		return "", err
	}
	canonical := strings.ToLower(s)
	if !lo.Contains(allowed, canonical) {
		key, _, _ := Resolve(obj, field)
		return "", newValidationError(ReasonInvalidEnum, field.Name(), childPath(path, key),
			"field %q must be one of %s, got %q", key, strings.Join(allowed, ", "), s)
	}
	return canonical, nil
}
