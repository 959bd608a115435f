// Package normalize turns loosely structured model output into strict,
// validated feedback results.
//
// Model output is decoded as a JSON object after any Markdown code fence is
// removed. Field names are resolved through an alias table (see aliases.go),
// strings are trimmed, and unknown fields are ignored. Failures are reported
// as *SyntaxError or *ValidationError; the latter carries a Reason suitable
// for classification without inspecting the message text.
package normalize
