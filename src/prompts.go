package storyverse

import (
	"fmt"
	"strings"
)

// Prompt is a system/user pair sent to a TextGenerator.
type Prompt struct {
	System string
	User   string
}

func (p Prompt) String() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// StoryContext assembles the parameters and the story so far into the
// context block every prompt embeds.
func StoryContext(params NarrativeParameters, storyText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Main character: %s the %s.\n", params.CharacterName, params.CharacterRole)
	fmt.Fprintf(&b, "Story Genre: %s.\n", params.Genre)
	fmt.Fprintf(&b, "Story Format: %s.\n", params.Format)
	if params.AestheticStyle != "" {
		fmt.Fprintf(&b, "Aesthetic Style: %s.\n", params.AestheticStyle)
	}
	if params.EraStyle != "" {
		fmt.Fprintf(&b, "Era/Stylistic Reference: %s.\n", params.EraStyle)
	}
	b.WriteString("Current story progress:\n")
	b.WriteString(storyText)
	return b.String()
}

// SimpleContext is the context block of the simple protocol.
func SimpleContext(storyText string) string {
	return "Current story progress:\n" + storyText
}

func writerPersona(params NarrativeParameters) string {
	format := strings.ToLower(params.Format)
	if format == "" {
		format = "story"
	}
	return "award-winning " + format + " writer"
}

func styleInstructions(params NarrativeParameters) []string {
	var lines []string
	if params.AestheticStyle == TwentiethCenturyAesthetic {
		lines = append(lines, fmt.Sprintf(
			"Write in the style of a classic 20th-century %s from the 1930s-1980s, emulating the language, structure, and tone of that era.",
			strings.ToLower(params.Format)))
	}
	if params.EraStyle != "" {
		lines = append(lines, fmt.Sprintf("Emulate the stylistic elements of a %s.", params.EraStyle))
	}
	return lines
}

// BuildSuggestionPrompt asks for three continuations, a bonus idea and a
// visual concept, each followed by commentary.
func BuildSuggestionPrompt(storyContext string, params NarrativeParameters, tone string) Prompt {
	format := strings.ToLower(params.Format)
	system := fmt.Sprintf("You are an %s helping a user co-write a suspenseful, engaging, and fun story. The user will pick from your suggestions.",
		writerPersona(params))

	var b strings.Builder
	fmt.Fprintf(&b, "The story genre is %s. Write in %s.\n", params.Genre, params.Language)
	fmt.Fprintf(&b, "Provide 3 vivid %s continuation options (1-2 sentences max), each followed by a 'Commentary:' line explaining the creative choice.\n", format)
	b.WriteString("Also suggest 1 'Bonus Idea' that introduces a surprise twist or new character, followed by its own 'Commentary:' line.\n")
	if tone = strings.TrimSpace(tone); tone != "" {
		fmt.Fprintf(&b, "Also, %s the next part of the story.\n", tone)
	}
	for _, line := range styleInstructions(params) {
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "\nUse a tone appropriate to the current mood and %s conventions. Be playful, mysterious, or dramatic when fitting.\n\n", params.Genre)
	b.WriteString("Format exactly like this:\n")
	b.WriteString("1. [Continuation 1]\nCommentary: [Explanation]\n")
	b.WriteString("2. [Continuation 2]\nCommentary: [Explanation]\n")
	b.WriteString("3. [Continuation 3]\nCommentary: [Explanation]\n")
	b.WriteString("Bonus Idea: [Plot twist or new character]\nCommentary: [Explanation]\n")
	kind := VisualConceptKind(params.Format)
	if kind == "" {
		kind = "cover art"
	}
	fmt.Fprintf(&b, "Visual Concept: [What a 20th-century-style %s concept would look like for this story, in vivid visual language]\n", kind)
	b.WriteString("Commentary: [Explanation]\n")
	writeStoryBlock(&b, storyContext)

	return Prompt{System: system, User: b.String()}
}

// BuildSimplePrompt asks for a continuation, a new character and a plot
// twist as a plain numbered list.
func BuildSimplePrompt(storyContext string) Prompt {
	var b strings.Builder
	b.WriteString("Given the following story context, generate exactly 3 distinct, concise (1-2 sentences each) options for how the story could proceed. Each option should be a:\n")
	b.WriteString("1. Direct Story Continuation: What happens next directly building on the last events.\n")
	b.WriteString("2. New Character Idea: Introduce a new character relevant to the current plot or setting.\n")
	b.WriteString("3. Potential Plot Twist: A sudden, unexpected turn in the narrative.\n\n")
	b.WriteString("Present these as a numbered list (1., 2., 3.).\n")
	writeStoryBlock(&b, storyContext)
	return Prompt{
		System: "You are a creative writing partner helping a user co-write a story.",
		User:   b.String(),
	}
}

// BuildEndingPrompt asks for two or three distinct endings.
func BuildEndingPrompt(storyContext string, params NarrativeParameters) Prompt {
	format := strings.ToLower(params.Format)
	system := fmt.Sprintf("You are an %s helping a user conclude their suspenseful, engaging, and fun story. The user will pick from your suggested endings.",
		writerPersona(params))

	var b strings.Builder
	fmt.Fprintf(&b, "The story genre is %s. Write in %s.\n", params.Genre, params.Language)
	fmt.Fprintf(&b, "Provide 2-3 distinct and concise %s ending options (1-3 sentences max each). Each ending should offer a different resolution or emotional tone (e.g., triumphant, bittersweet, mysterious, conclusive).\n", format)
	for _, line := range styleInstructions(params) {
		b.WriteString(line + "\n")
	}
	b.WriteString("\nFormat exactly as a numbered list:\n1. [Ending 1]\n2. [Ending 2]\n3. [Ending 3] (Optional, if you have a third distinct idea)\n")
	writeStoryBlock(&b, storyContext)

	return Prompt{System: system, User: b.String()}
}

func writeStoryBlock(b *strings.Builder, storyContext string) {
	b.WriteString("\nStory so far:\n---\n")
	b.WriteString(storyContext)
	b.WriteString("\n---\n")
}
