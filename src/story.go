package storyverse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StoryLog is the append-only, ordered record of a story.
type StoryLog struct {
	segments []StorySegment
}

// NewStoryLog returns an empty log.
func NewStoryLog() *StoryLog {
	return &StoryLog{}
}

// Append trims text and stores it as the next segment.
func (l *StoryLog) Append(text string, contributor Contributor, category Category) (StorySegment, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return StorySegment{}, ErrEmptyInput
	}
	seg := StorySegment{
		Text:        trimmed,
		Contributor: contributor,
		Category:    category,
		Sequence:    l.NextSequence(),
	}
	l.segments = append(l.segments, seg)
	return seg, nil
}

// NextSequence is the sequence number the next appended segment receives.
func (l *StoryLog) NextSequence() int {
	return len(l.segments)
}

func (l *StoryLog) Len() int {
	return len(l.segments)
}

// Segments returns a copy of the stored segments.
func (l *StoryLog) Segments() []StorySegment {
	out := make([]StorySegment, len(l.segments))
	copy(out, l.segments)
	return out
}

// Last returns the most recent segment.
func (l *StoryLog) Last() (StorySegment, bool) {
	if len(l.segments) == 0 {
		return StorySegment{}, false
	}
	return l.segments[len(l.segments)-1], true
}

// Concluded reports whether the story ends with an ending segment.
func (l *StoryLog) Concluded() bool {
	last, ok := l.Last()
	return ok && last.Category == CategoryEnding
}

// RenderText joins the segments into readable prose. A ". " separator is
// inserted whenever the text assembled so far does not already end in
// sentence punctuation, a newline or a space.
func (l *StoryLog) RenderText() string {
	var b strings.Builder
	for _, seg := range l.segments {
		if b.Len() > 0 && needsSeparator(b.String()) {
			b.WriteString(". ")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

func needsSeparator(rendered string) bool {
	switch rendered[len(rendered)-1] {
	case '.', '!', '?', '\n', ' ':
		return false
	}
	return true
}

// Serialize encodes the log as a JSON array of segment records.
func (l *StoryLog) Serialize() ([]byte, error) {
	segments := l.segments
	if segments == nil {
		segments = []StorySegment{}
	}
	return json.MarshalIndent(segments, "", "  ")
}

// Deserialize restores a log written by Serialize. Zero-length input is an
// empty log; anything malformed is reported as ErrCorruptLog. Segment text is
// trimmed the same way Append trims it.
func Deserialize(data []byte) (*StoryLog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewStoryLog(), nil
	}
	var segments []StorySegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	for i := range segments {
		seg := &segments[i]
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Sequence != i {
			return nil, fmt.Errorf("%w: segment %d has round %d", ErrCorruptLog, i, seg.Sequence)
		}
		if seg.Text == "" {
			return nil, fmt.Errorf("%w: segment %d is blank", ErrCorruptLog, i)
		}
	}
	return &StoryLog{segments: segments}, nil
}
