package ui

import (
	"errors"
	"io/fs"
	"path/filepath"

	storyverse "github.com/opd-ai/storyverse/src"
)

// storyStore keeps each web session's story on disk as <id>.json with the
// narrative parameters beside it.
type storyStore struct {
	dir string
}

func (s storyStore) logPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s storyStore) SaveParams(id string, params storyverse.NarrativeParameters) error {
	return storyverse.SaveParams(storyverse.ParamsPath(s.logPath(id)), params)
}

func (s storyStore) SaveLog(id string, log *storyverse.StoryLog) error {
	return storyverse.SaveStoryLog(s.logPath(id), log)
}

// Load returns a saved story. ok is false when nothing was saved under id.
func (s storyStore) Load(id string) (params storyverse.NarrativeParameters, log *storyverse.StoryLog, ok bool, err error) {
	params, err = storyverse.LoadParams(storyverse.ParamsPath(s.logPath(id)))
	if errors.Is(err, fs.ErrNotExist) {
		return params, nil, false, nil
	}
	if err != nil {
		return params, nil, false, err
	}
	log, err = storyverse.LoadStoryLog(s.logPath(id))
	if err != nil {
		return params, nil, false, err
	}
	if log.Len() == 0 {
		return params, nil, false, nil
	}
	return params, log, true, nil
}
