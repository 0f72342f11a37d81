package discovery

import (
	"fmt"
	"strings"
)

// validateTerm rejects terms the upstream would never accept: empty
// (after trimming) or longer than the configured limit.
func validateTerm(term string, maxLen int) error {
	if strings.TrimSpace(term) == "" {
		return fmt.Errorf("%w: empty search term", ErrInvalidTerm)
	}
	if len(term) > maxLen {
		return fmt.Errorf("%w: search term too long (%d > %d)", ErrInvalidTerm, len(term), maxLen)
	}
	return nil
}

// cleanHashtag normalises a hashtag for the upstream lookup: "#"
// stripped, surrounding whitespace trimmed, lowercased.
func cleanHashtag(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#")))
}

// splitTerm derives the ordered single-word hashtag tokens from a
// multi-word term.
func splitTerm(term string) []string {
	fields := strings.Fields(term)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, "#"+strings.ToLower(f))
	}
	return tokens
}
