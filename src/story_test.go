package storyverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryLog_Append(t *testing.T) {
	log := NewStoryLog()

	seg, err := log.Append("  Once upon a time  ", ContributorUser, CategoryOpening)
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time", seg.Text)
	assert.Equal(t, 0, seg.Sequence)
	assert.Equal(t, 1, log.NextSequence())

	seg, err = log.Append("a dragon woke.", ContributorAI, CategoryContinuation)
	require.NoError(t, err)
	assert.Equal(t, 1, seg.Sequence)
	assert.Equal(t, ContributorAI, seg.Contributor)
	assert.Equal(t, CategoryContinuation, seg.Category)
}

func TestStoryLog_AppendRejectsBlank(t *testing.T) {
	log := NewStoryLog()
	_, err := log.Append("first", ContributorUser, CategoryOpening)
	require.NoError(t, err)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := log.Append(text, ContributorUser, CategoryFreeForm)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Equal(t, 1, log.Len())
	assert.Equal(t, 1, log.NextSequence())
}

func TestStoryLog_RenderText(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"empty", nil, ""},
		{"single", []string{"It began."}, "It began."},
		{"adds separator", []string{"The door creaked", "A cat slipped in."}, "The door creaked. A cat slipped in."},
		{"period without space", []string{"It was a lie.", "He woke up."}, "It was a lie.He woke up."},
		{"question mark", []string{"Who knocked?", "Nobody."}, "Who knocked?Nobody."},
		{"exclamation", []string{"Run!", "They ran"}, "Run!They ran"},
		{"three segments", []string{"Rain fell", "Thunder rolled", "Silence"}, "Rain fell. Thunder rolled. Silence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewStoryLog()
			for i, s := range tt.segments {
				cat := CategoryContinuation
				if i == 0 {
					cat = CategoryOpening
				}
				_, err := log.Append(s, ContributorUser, cat)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, log.RenderText())
			assert.Equal(t, tt.want, log.RenderText(), "rendering twice gives the same text")
		})
	}
}

func TestStoryLog_SerializeRoundTrip(t *testing.T) {
	log := NewStoryLog()
	_, _ = log.Append("The lighthouse was dark", ContributorUser, CategoryOpening)
	_, _ = log.Append("Bonus: a ghost appears", ContributorAI, CategoryBonusIdea)
	_, _ = log.Append("She lit the lamp.", ContributorUser, CategoryFreeForm)
	_, _ = log.Append("And the sea was calm.", ContributorAI, CategoryEnding)

	data, err := log.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contributor": "AI"`)
	assert.Contains(t, string(data), `"type": "bonus_idea"`)
	assert.Contains(t, string(data), `"round": 3`)

	restored, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, log.Segments(), restored.Segments())
	assert.Equal(t, log.RenderText(), restored.RenderText())
	assert.True(t, restored.Concluded())
}

func TestStoryLog_SerializeEmpty(t *testing.T) {
	data, err := NewStoryLog().Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestDeserialize_Corrupt(t *testing.T) {
	tests := map[string]string{
		"not json":            `{{{`,
		"object not array":    `{"text":"x"}`,
		"unknown type":        `[{"text":"x","contributor":"User","type":"prologue","round":0}]`,
		"unknown contributor": `[{"text":"x","contributor":"Robot","type":"opening","round":0}]`,
		"gap in rounds":       `[{"text":"x","contributor":"User","type":"opening","round":0},{"text":"y","contributor":"AI","type":"continuation","round":2}]`,
		"blank text":          `[{"text":"  ","contributor":"User","type":"opening","round":0}]`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize([]byte(data))
			assert.ErrorIs(t, err, ErrCorruptLog)
		})
	}
}

func TestDeserialize_EmptyInput(t *testing.T) {
	log, err := Deserialize([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, log.Len())
}

func TestDeserialize_TrimsText(t *testing.T) {
	log, err := Deserialize([]byte(`[{"text":"  The gate was sealed \n","contributor":"User","type":"opening","round":0},{"text":"lie","contributor":"AI","type":"continuation","round":1}]`))
	require.NoError(t, err)
	segs := log.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "The gate was sealed", segs[0].Text)
	assert.Equal(t, "The gate was sealed. lie", log.RenderText())
}
