package storyverse

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStoryLog_Missing(t *testing.T) {
	log, err := LoadStoryLog(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, log.Len())
}

func TestLoadStoryLog_CorruptStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	require.NoError(t, os.WriteFile(path, []byte("not a story"), 0o644))

	log, err := LoadStoryLog(path)
	assert.ErrorIs(t, err, ErrCorruptLog)
	require.NotNil(t, log)
	assert.Equal(t, 0, log.Len())
}

func TestSaveAndLoadStoryLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "story.json")
	log := NewStoryLog()
	_, _ = log.Append("A storm rolled in", ContributorUser, CategoryOpening)
	_, _ = log.Append("The ship listed to port.", ContributorAI, CategoryContinuation)

	require.NoError(t, SaveStoryLog(path, log))
	loaded, err := LoadStoryLog(path)
	require.NoError(t, err)
	assert.Equal(t, log.Segments(), loaded.Segments())

	// overwrite with a longer log
	_, _ = log.Append("Then the mast broke.", ContributorUser, CategoryFreeForm)
	require.NoError(t, SaveStoryLog(path, log))
	loaded, err = LoadStoryLog(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestExportText(t *testing.T) {
	assert.Nil(t, ExportText(NewStoryLog()))

	log := NewStoryLog()
	_, _ = log.Append("Night fell", ContributorUser, CategoryOpening)
	_, _ = log.Append("Stars rose.", ContributorAI, CategoryEnding)
	assert.Equal(t, "Night fell. Stars rose.\n", string(ExportText(log)))

	path := filepath.Join(t.TempDir(), StoryFileName)
	require.NoError(t, SaveStoryText(path, log))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Night fell. Stars rose.\n", string(data))
}

func TestParamsSidecar(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "abc.json")
	assert.Equal(t, filepath.Join(filepath.Dir(logPath), "abc.meta.json"), ParamsPath(logPath))

	_, err := LoadParams(ParamsPath(logPath))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	want := NarrativeParameters{CharacterName: "Mara", CharacterRole: "Knight", Genre: "Fantasy", Language: "English", Format: "Novel"}
	require.NoError(t, SaveParams(ParamsPath(logPath), want))
	got, err := LoadParams(ParamsPath(logPath))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
