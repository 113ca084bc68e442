package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"englishbuddy/internal/tutor/model"
)

// extractGrammarPoints returns the elements of the first balanced [...] section of
// content that is a JSON array of grammar point objects. Elements are returned as
// sent, extra keys included. ok is false when no section qualifies.
func extractGrammarPoints(content string) ([]json.RawMessage, bool) {
	for start := strings.IndexByte(content, '['); start >= 0; {
		if end := matchingBracket(content, start); end > start {
			if points, ok := decodeGrammarPoints([]byte(content[start : end+1])); ok {
				return points, true
			}
		}

		next := strings.IndexByte(content[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// decodeGrammarPoints accepts an array whose elements are all objects with
// correctly typed grammar point fields.
func decodeGrammarPoints(raw []byte) ([]json.RawMessage, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, false
	}
	for _, e := range elems {
		if !bytes.HasPrefix(bytes.TrimSpace(e), []byte("{")) {
			return nil, false
		}
		var p model.GrammarPoint
		if err := json.Unmarshal(e, &p); err != nil {
			return nil, false
		}
	}
	return elems, true
}

// matchingBracket returns the index of the ']' closing the '[' at open,
// skipping brackets inside JSON string literals, or -1.
func matchingBracket(s string, open int) int {
	depth := 0
	inString := false
	escaped := false

	for i := open; i < len(s); i++ {
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
