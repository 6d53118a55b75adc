package usecase

import (
	"strings"
)

// extractJSON pulls a JSON object or array out of a model reply. Models wrap
// their output in markdown fences or surround it with prose often enough that
// decoding the raw reply directly fails on otherwise usable responses.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	// Strip a markdown code fence if the whole reply is wrapped in one
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		if body, ok := matchBrackets(s); ok {
			return body, true
		}
	}

	// Prose around the payload: scan for the first balanced object
	for i, r := range s {
		if r == '{' || r == '[' {
			if body, ok := matchBrackets(s[i:]); ok {
				return body, true
			}
		}
	}

	return "", false
}

// matchBrackets returns the prefix of s that forms one balanced JSON value.
// String literals are respected so braces inside product names don't
// unbalance the scan.
func matchBrackets(s string) (string, bool) {
	open := s[0]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}

	return "", false
}
