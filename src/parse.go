package storyverse

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	richArity        = 5
	richMainArity    = 3
	simpleArity      = 3
	minEndings       = 2
	maxEndings       = 3
	defaultComment   = "No commentary provided."
	fallbackComment  = "No commentary."
	fallbackBonus    = "Bonus Idea (fallback)"
	fallbackVisual   = "Visual Concept: Placeholder image idea."
	FallbackEndingA  = "A mysterious silence fell, leaving the story unfinished."
	FallbackEndingB  = "The end, for now."
	shortfallRich    = "suggestion"
	shortfallSimple  = "simple suggestion"
	shortfallEndings = "ending"
)

var (
	numberedLine   = regexp.MustCompile(`^\d+\.\s*(.*)$`)
	bonusLine      = regexp.MustCompile(`(?i)^Bonus Idea:\s*(.*)$`)
	visualLine     = regexp.MustCompile(`(?i)^Visual Concept:.*$`)
	commentaryLine = regexp.MustCompile(`(?i)^commentary:\s*`)
)

func replyLines(reply string) []string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ParseSuggestions reads numbered continuations, a bonus idea and a visual
// concept from a reply, pairing each with the commentary line that
// immediately follows it. Lines matching nothing are skipped.
func ParseSuggestions(reply string) []Suggestion {
	lines := replyLines(reply)
	var out []Suggestion
	for i := 0; i < len(lines); {
		line := lines[i]
		var sug Suggestion
		switch {
		case numberedLine.MatchString(line):
			sug = Suggestion{Text: strings.TrimSpace(numberedLine.FindStringSubmatch(line)[1]), Kind: KindContinuation}
		case bonusLine.MatchString(line):
			sug = Suggestion{Text: bonusPrefix + strings.TrimSpace(bonusLine.FindStringSubmatch(line)[1]), Kind: KindBonusIdea}
		case visualLine.MatchString(line):
			sug = Suggestion{Text: line, Kind: KindVisualConcept}
		default:
			i++
			continue
		}
		i++
		sug.Commentary = defaultComment
		if i < len(lines) && strings.HasPrefix(strings.ToLower(lines[i]), "commentary:") {
			sug.Commentary = strings.TrimSpace(commentaryLine.ReplaceAllString(lines[i], ""))
			i++
		}
		out = append(out, sug)
	}
	return out
}

// ParseNumbered returns the text of every numbered line in the reply.
func ParseNumbered(reply string) []string {
	var out []string
	for _, line := range replyLines(reply) {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

// PadSuggestions brings a parsed rich reply to exactly five entries. Missing
// main continuations are filled first, then the bonus idea, then the visual
// concept. Surplus entries are dropped.
func PadSuggestions(parsed []Suggestion) ([]Suggestion, *ShortfallWarning) {
	out := append([]Suggestion(nil), parsed...)
	var warn *ShortfallWarning
	if len(out) < richArity {
		warn = &ShortfallWarning{Kind: shortfallRich, Expected: richArity, Got: len(out)}
		for len(out) < richMainArity {
			out = append(out, Suggestion{
				Text:       fmt.Sprintf("AI continuation %d (fallback)", len(out)+1),
				Commentary: fallbackComment,
				Kind:       KindContinuation,
				Fallback:   true,
			})
		}
		if len(out) < richMainArity+1 {
			out = append(out, Suggestion{Text: fallbackBonus, Commentary: fallbackComment, Kind: KindBonusIdea, Fallback: true})
		}
		if len(out) < richArity {
			out = append(out, Suggestion{Text: fallbackVisual, Commentary: fallbackComment, Kind: KindVisualConcept, Fallback: true})
		}
	}
	return out[:richArity], warn
}

var simpleKinds = [simpleArity]SuggestionKind{KindContinuation, KindCharacterIdea, KindPlotTwist}

// PadSimple turns numbered lines into exactly three suggestions, tagged by
// position as continuation, character idea and plot twist.
func PadSimple(parsed []string) ([]Suggestion, *ShortfallWarning) {
	var warn *ShortfallWarning
	if len(parsed) < simpleArity {
		warn = &ShortfallWarning{Kind: shortfallSimple, Expected: simpleArity, Got: len(parsed)}
	}
	out := make([]Suggestion, simpleArity)
	for i := range out {
		out[i].Kind = simpleKinds[i]
		if i < len(parsed) {
			out[i].Text = parsed[i]
			continue
		}
		out[i].Text = fmt.Sprintf("AI suggestion %d (fallback)", i+1)
		out[i].Fallback = true
	}
	return out, warn
}

// PadEndings keeps between two and three endings. An empty parse yields
// the two fixed fallback endings.
func PadEndings(parsed []string) (EndingSet, *ShortfallWarning) {
	switch {
	case len(parsed) == 0:
		return EndingSet{Endings: []string{FallbackEndingA, FallbackEndingB}, Fallback: true},
			&ShortfallWarning{Kind: shortfallEndings, Expected: minEndings, Got: 0}
	case len(parsed) < minEndings:
		endings := append(append([]string(nil), parsed...), FallbackEndingB)
		return EndingSet{Endings: endings},
			&ShortfallWarning{Kind: shortfallEndings, Expected: minEndings, Got: len(parsed)}
	case len(parsed) > maxEndings:
		return EndingSet{Endings: append([]string(nil), parsed[:maxEndings]...)}, nil
	}
	return EndingSet{Endings: append([]string(nil), parsed...)}, nil
}
