package normalize

import "strings"

// StripCodeFence removes a surrounding Markdown code fence (``` or ```json)
// and trims whitespace. Text without a fence is only trimmed, so applying it
// twice gives the same result as applying it once.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	body := strings.TrimPrefix(s, "```")
	// Drop the info string (e.g. "json") up to the first newline
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		info := strings.TrimSpace(body[:nl])
		if info == "" || isInfoString(info) {
			body = body[nl+1:]
		}
	} else {
		// Single line fence: ```{"a":1}```
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

func isInfoString(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
