package storyverse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Contributor identifies who wrote a story segment.
type Contributor int

const (
	ContributorUser Contributor = iota
	ContributorAI
)

func (c Contributor) String() string {
	switch c {
	case ContributorUser:
		return "User"
	case ContributorAI:
		return "AI"
	}
	return fmt.Sprintf("Contributor(%d)", int(c))
}

func parseContributor(s string) (Contributor, error) {
	switch s {
	case "User":
		return ContributorUser, nil
	case "AI":
		return ContributorAI, nil
	}
	return 0, fmt.Errorf("unknown contributor %q", s)
}

// Category classifies a story segment.
type Category int

const (
	CategoryOpening Category = iota
	CategoryContinuation
	CategoryCharacterIdea
	CategoryPlotTwist
	CategoryBonusIdea
	CategoryFreeForm
	CategoryEnding
)

var categoryNames = map[Category]string{
	CategoryOpening:       "opening",
	CategoryContinuation:  "continuation",
	CategoryCharacterIdea: "character_idea",
	CategoryPlotTwist:     "plot_twist",
	CategoryBonusIdea:     "bonus_idea",
	CategoryFreeForm:      "free_form",
	CategoryEnding:        "ending",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

func parseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown segment type %q", s)
}

// StorySegment is one immutable piece of the story.
type StorySegment struct {
	Text        string
	Contributor Contributor
	Category    Category
	Sequence    int
}

// segmentRecord is the persisted shape of a StorySegment.
type segmentRecord struct {
	Text        string `json:"text"`
	Contributor string `json:"contributor"`
	Type        string `json:"type"`
	Round       int    `json:"round"`
}

func (s StorySegment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentRecord{
		Text:        s.Text,
		Contributor: s.Contributor.String(),
		Type:        s.Category.String(),
		Round:       s.Sequence,
	})
}

func (s *StorySegment) UnmarshalJSON(data []byte) error {
	var rec segmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	contributor, err := parseContributor(rec.Contributor)
	if err != nil {
		return err
	}
	category, err := parseCategory(rec.Type)
	if err != nil {
		return err
	}
	*s = StorySegment{
		Text:        rec.Text,
		Contributor: contributor,
		Category:    category,
		Sequence:    rec.Round,
	}
	return nil
}

// SuggestionKind tags what a suggestion proposes. It is assigned when the
// reply is parsed so nothing downstream has to inspect the text.
type SuggestionKind int

const (
	KindContinuation SuggestionKind = iota
	KindCharacterIdea
	KindPlotTwist
	KindBonusIdea
	KindVisualConcept
)

func (k SuggestionKind) String() string {
	switch k {
	case KindContinuation:
		return "continuation"
	case KindCharacterIdea:
		return "character_idea"
	case KindPlotTwist:
		return "plot_twist"
	case KindBonusIdea:
		return "bonus_idea"
	case KindVisualConcept:
		return "visual_concept"
	}
	return fmt.Sprintf("SuggestionKind(%d)", int(k))
}

func (k SuggestionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Category maps a selectable suggestion kind to the segment category it
// produces. Visual concepts are not selectable.
func (k SuggestionKind) Category() (Category, bool) {
	switch k {
	case KindContinuation:
		return CategoryContinuation, true
	case KindCharacterIdea:
		return CategoryCharacterIdea, true
	case KindPlotTwist:
		return CategoryPlotTwist, true
	case KindBonusIdea:
		return CategoryBonusIdea, true
	}
	return 0, false
}

const (
	bonusPrefix  = "Bonus Idea: "
	visualPrefix = "Visual Concept:"
)

// Suggestion is one entry of a generation round.
type Suggestion struct {
	Text       string         `json:"text"`
	Commentary string         `json:"commentary,omitempty"`
	Kind       SuggestionKind `json:"kind"`
	Fallback   bool           `json:"fallback,omitempty"`
}

// Selectable reports whether the suggestion can be appended to the story.
func (s Suggestion) Selectable() bool {
	_, ok := s.Kind.Category()
	return ok
}

// StoryText is the text appended to the log when the suggestion is chosen.
func (s Suggestion) StoryText() string {
	if s.Kind == KindBonusIdea {
		return strings.TrimSpace(strings.TrimPrefix(s.Text, bonusPrefix))
	}
	return s.Text
}

// ImagePrompt is the visual concept description without its label.
func (s Suggestion) ImagePrompt() string {
	text := s.Text
	if len(text) >= len(visualPrefix) && strings.EqualFold(text[:len(visualPrefix)], visualPrefix) {
		text = text[len(visualPrefix):]
	}
	return strings.TrimSpace(text)
}

// SuggestionSet is the result of one suggestion round.
type SuggestionSet struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Visual returns the visual concept entry, if the set carries one.
func (s SuggestionSet) Visual() (Suggestion, bool) {
	for _, sug := range s.Suggestions {
		if sug.Kind == KindVisualConcept {
			return sug, true
		}
	}
	return Suggestion{}, false
}

// EndingSet holds the candidate endings of one ending round.
type EndingSet struct {
	Endings  []string `json:"endings"`
	Fallback bool     `json:"fallback,omitempty"`
}

// NarrativeParameters are fixed at story setup. Field order is the order in
// which missing values are reported.
type NarrativeParameters struct {
	CharacterName  string `json:"character_name" validate:"required"`
	CharacterRole  string `json:"character_role" validate:"required"`
	Genre          string `json:"genre" validate:"required"`
	Language       string `json:"language" validate:"required"`
	Format         string `json:"format" validate:"required"`
	AestheticStyle string `json:"aesthetic_style,omitempty"`
	EraStyle       string `json:"era_style,omitempty"`
}

// Protocol selects the suggestion reply grammar.
type Protocol string

const (
	ProtocolRich   Protocol = "rich"
	ProtocolSimple Protocol = "simple"
)

// Arity is the number of entries a suggestion set holds under the protocol.
func (p Protocol) Arity() int {
	if p == ProtocolSimple {
		return simpleArity
	}
	return richArity
}
