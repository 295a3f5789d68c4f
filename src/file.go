package storyverse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// StoryFileName is the download name used for the plain-text story.
const StoryFileName = "my_co_authored_story.txt"

// LoadStoryLog reads a saved log. A missing file yields an empty log and no
// error. A corrupt file yields an empty log together with an error wrapping
// ErrCorruptLog, so callers can report it and start fresh.
func LoadStoryLog(path string) (*StoryLog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewStoryLog(), nil
	}
	if err != nil {
		return NewStoryLog(), fmt.Errorf("reading story log: %w", err)
	}
	log, err := Deserialize(data)
	if err != nil {
		return NewStoryLog(), fmt.Errorf("loading %s: %w", path, err)
	}
	return log, nil
}

// SaveStoryLog writes the whole log to path through a temporary file.
func SaveStoryLog(path string, log *StoryLog) error {
	data, err := log.Serialize()
	if err != nil {
		return fmt.Errorf("encoding story log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating story directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".story-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing story log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing story log: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving story log: %w", err)
	}
	return nil
}

// ExportText renders the story as downloadable plain text.
func ExportText(log *StoryLog) []byte {
	text := log.RenderText()
	if text == "" {
		return nil
	}
	return []byte(text + "\n")
}

// SaveStoryText writes the rendered story next to other exports.
func SaveStoryText(path string, log *StoryLog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, ExportText(log), 0o644); err != nil {
		return fmt.Errorf("saving story text: %w", err)
	}
	return nil
}

// ParamsPath is the sidecar file holding the narrative parameters of the
// log saved at logPath.
func ParamsPath(logPath string) string {
	return strings.TrimSuffix(logPath, filepath.Ext(logPath)) + ".meta.json"
}

// SaveParams writes narrative parameters as indented JSON.
func SaveParams(path string, params NarrativeParameters) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating story directory: %w", err)
	}
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving story parameters: %w", err)
	}
	return nil
}

// LoadParams reads parameters written by SaveParams. A missing file is
// reported with an error wrapping fs.ErrNotExist.
func LoadParams(path string) (NarrativeParameters, error) {
	var params NarrativeParameters
	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("reading story parameters: %w", err)
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("decoding story parameters: %w", err)
	}
	return params, nil
}
