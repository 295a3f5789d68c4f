package bookcompiler

import (
	"fmt"
	"io"
	"strings"

	storyverse "github.com/opd-ai/storyverse/src"
)

// StoryTitle names a co-authored story after its protagonist.
func StoryTitle(params storyverse.NarrativeParameters) string {
	if params.CharacterName == "" {
		return "A Co-Authored Story"
	}
	return fmt.Sprintf("The Tale of %s", params.CharacterName)
}

// StorySections lays a story log out as book sections: the story text,
// the setup it was written under, and a round-by-round record of who
// wrote what.
func StorySections(params storyverse.NarrativeParameters, log *storyverse.StoryLog) []Section {
	var story strings.Builder
	for _, para := range strings.Split(log.RenderText(), "\n") {
		if para = strings.TrimSpace(para); para != "" {
			story.WriteString(escapeMarkdown(para))
			story.WriteString("\n\n")
		}
	}
	if log.Concluded() {
		story.WriteString("---\n\n*The End*\n")
	}

	var details strings.Builder
	details.WriteString("| Setting | Value |\n|---|---|\n")
	for _, row := range [][2]string{
		{"Character", params.CharacterName},
		{"Role", params.CharacterRole},
		{"Genre", params.Genre},
		{"Language", params.Language},
		{"Format", params.Format},
		{"Aesthetic", params.AestheticStyle},
		{"Era", params.EraStyle},
	} {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(&details, "| %s | %s |\n", row[0], escapeMarkdown(row[1]))
	}

	var rounds strings.Builder
	for _, seg := range log.Segments() {
		fmt.Fprintf(&rounds, "## Round %d\n\n", seg.Sequence+1)
		fmt.Fprintf(&rounds, "**%s**, *%s*\n\n", seg.Contributor,
			strings.ReplaceAll(seg.Category.String(), "_", " "))
		fmt.Fprintf(&rounds, "> %s\n\n", escapeMarkdown(strings.ReplaceAll(seg.Text, "\n", " ")))
	}

	return []Section{
		{Title: "The Story", Markdown: story.String()},
		{Title: "Story Details", Markdown: details.String()},
		{Title: "How It Was Written", Markdown: rounds.String()},
	}
}

// CompileStory writes the story log as a PDF book to w.
func CompileStory(w io.Writer, params storyverse.NarrativeParameters, log *storyverse.StoryLog) error {
	if log == nil || log.Len() == 0 {
		return fmt.Errorf("compiling story: %w", storyverse.ErrEmptyInput)
	}
	bc := NewBookCompiler(StoryTitle(params))
	if params.Genre != "" && params.Format != "" {
		bc.Subtitle = fmt.Sprintf("A %s %s", strings.ToLower(params.Genre), strings.ToLower(params.Format))
	}
	return bc.Compile(w, StorySections(params, log))
}
