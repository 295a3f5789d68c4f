package storyverse

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput            = errors.New("empty input")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrCorruptLog            = errors.New("corrupt story log")
	ErrMissingParameter      = errors.New("missing narrative parameter")
	ErrInvalidTransition     = errors.New("invalid session transition")
	ErrRequestInFlight       = errors.New("a generation request is already in flight")
	ErrConcluded             = errors.New("story is concluded")
	ErrInvalidChoice         = errors.New("invalid choice")
)

// MissingFieldError names the first required parameter that was left blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingParameter, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingParameter }

// TransitionError reports an operation attempted in the wrong session state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTransition, e.Op, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ShortfallWarning describes a reply that held fewer entries than the
// protocol asks for. The set was padded; this is a diagnostic, not an error.
type ShortfallWarning struct {
	Kind     string
	Expected int
	Got      int
}

func (w *ShortfallWarning) String() string {
	return fmt.Sprintf("%s reply short: expected %d entries, got %d", w.Kind, w.Expected, w.Got)
}
