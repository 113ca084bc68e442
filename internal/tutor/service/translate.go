package service

import (
	"strings"
)

// cleanTranslation reduces a completion to a bare word or phrase:
// known labels are stripped, then everything after the first line break
// and after the first period is dropped.
func cleanTranslation(completion, target string) string {
	out := strings.TrimSpace(completion)
	out = trimLabel(out, "translation:")
	if target != "" {
		out = trimLabel(out, strings.ToLower(target)+":")
	}

	out, _, _ = strings.Cut(out, "\n")
	out, _, _ = strings.Cut(out, ".")
	return strings.TrimSpace(out)
}

// trimLabel removes a case-insensitive prefix label.
func trimLabel(s, label string) string {
	if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
		return strings.TrimSpace(s[len(label):])
	}
	return s
}
