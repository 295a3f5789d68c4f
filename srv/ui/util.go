package ui

import (
	"strings"

	storyverse "github.com/opd-ai/storyverse/src"
)

// kindLabel is the heading shown above a suggestion card.
func kindLabel(kind storyverse.SuggestionKind) string {
	words := strings.Split(kind.String(), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
