package bookcompiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storyverse "github.com/opd-ai/storyverse/src"
)

var testParams = storyverse.NarrativeParameters{
	CharacterName: "Mira",
	CharacterRole: "Detective",
	Genre:         "Mystery",
	Language:      "English",
	Format:        "Short Story",
}

func testLog(t *testing.T) *storyverse.StoryLog {
	t.Helper()
	log := storyverse.NewStoryLog()
	_, err := log.Append("Rain hammered the *old* pier.", storyverse.ContributorUser, storyverse.CategoryOpening)
	require.NoError(t, err)
	_, err = log.Append("A lantern flickered where none should be.", storyverse.ContributorAI, storyverse.CategoryContinuation)
	require.NoError(t, err)
	return log
}

func TestStorySections(t *testing.T) {
	sections := StorySections(testParams, testLog(t))
	require.Len(t, sections, 3)

	assert.Equal(t, "The Story", sections[0].Title)
	assert.Contains(t, sections[0].Markdown, `\*old\*`)
	assert.NotContains(t, sections[0].Markdown, "The End")

	assert.Contains(t, sections[1].Markdown, "| Genre | Mystery |")
	assert.NotContains(t, sections[1].Markdown, "Aesthetic")

	assert.Contains(t, sections[2].Markdown, "## Round 1")
	assert.Contains(t, sections[2].Markdown, "## Round 2")
	assert.Contains(t, sections[2].Markdown, "**AI**, *continuation*")
}

func TestStorySections_Concluded(t *testing.T) {
	log := testLog(t)
	_, err := log.Append("The lantern went dark for good.", storyverse.ContributorUser, storyverse.CategoryEnding)
	require.NoError(t, err)

	sections := StorySections(testParams, log)
	assert.Contains(t, sections[0].Markdown, "*The End*")
}

func TestCompileStory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CompileStory(&buf, testParams, testLog(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestCompileStory_EmptyLog(t *testing.T) {
	var buf bytes.Buffer
	err := CompileStory(&buf, testParams, storyverse.NewStoryLog())
	assert.ErrorIs(t, err, storyverse.ErrEmptyInput)
	assert.Zero(t, buf.Len())
}

func TestStoryTitle(t *testing.T) {
	assert.Equal(t, "The Tale of Mira", StoryTitle(testParams))
	assert.Equal(t, "A Co-Authored Story", StoryTitle(storyverse.NarrativeParameters{}))
}

func TestCompile_ToCPagesFollowHeadings(t *testing.T) {
	log := storyverse.NewStoryLog()
	passage := strings.Repeat("The tide crept over the pier and the lantern swung in the wind. ", 12)
	_, err := log.Append(passage, storyverse.ContributorUser, storyverse.CategoryOpening)
	require.NoError(t, err)
	for i := 0; i < 59; i++ {
		_, err = log.Append(passage, storyverse.ContributorAI, storyverse.CategoryContinuation)
		require.NoError(t, err)
	}

	bc := NewBookCompiler(StoryTitle(testParams))
	var buf bytes.Buffer
	require.NoError(t, bc.Compile(&buf, StorySections(testParams, log)))

	var rounds []ToCEntry
	sectionPage := map[string]int{}
	for _, e := range bc.toc {
		if e.Level == 1 {
			sectionPage[e.Title] = e.PageNum
		} else {
			rounds = append(rounds, e)
		}
	}
	require.Len(t, rounds, 60)

	// Sixty rounds of contents overflow one page, so the story starts after them.
	tocPages := bc.tocPageCount()
	require.Greater(t, tocPages, 1)
	assert.Equal(t, 1+tocPages+1, sectionPage["The Story"])

	history := sectionPage["How It Was Written"]
	assert.Equal(t, history, rounds[0].PageNum)
	for i := 1; i < len(rounds); i++ {
		assert.GreaterOrEqual(t, rounds[i].PageNum, rounds[i-1].PageNum, rounds[i].Title)
	}
	assert.Greater(t, rounds[len(rounds)-1].PageNum, history+5)
}
