package normalize

import (
	"github.com/rs/zerolog"
)

const previewLength = 200

// Normalizer parses raw model text into a validated result of type T.
type Normalizer[T any] interface {
	Parse(subjectID, raw string) (T, error)
}

// diagnostics logs normalization failures with enough context for triage.
type diagnostics struct {
	useCase string
	logger  zerolog.Logger
}

func newDiagnostics(useCase string, logger zerolog.Logger) diagnostics {
	return diagnostics{
		useCase: useCase,
		logger:  logger.With().Str("component", "responseNormalizer").Str("use_case", useCase).Logger(),
	}
}

func (d diagnostics) report(subjectID, raw string, err error) {
	ev := d.logger.Warn().
		Err(err).
		Str("subject_id", subjectID).
		Str("category", Category(err)).
		Str("preview", Preview(raw))
	if ve, ok := err.(*ValidationError); ok {
		ev = ev.Str("field", ve.Field).Str("path", ve.Path)
	}
	if se, ok := err.(*SyntaxError); ok {
		ev = ev.Int("line", se.Line).Int("column", se.Column)
	}
	ev.Msg("Failed to normalize model response")
}

// Preview returns at most the first 200 characters of raw.
func Preview(raw string) string {
	runes := []rune(raw)
	if len(runes) <= previewLength {
		return raw
	}
	return string(runes[:previewLength]) + "..."
}
