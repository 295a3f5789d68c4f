package storyverse

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// State is the position of a Session in the writing flow.
type State int

const (
	StateSetup State = iota
	StateAwaitingSuggestions
	StatePresentingSuggestions
	StateAwaitingEndings
	StatePresentingEndings
	StateConcluded
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateAwaitingSuggestions:
		return "awaiting_suggestions"
	case StatePresentingSuggestions:
		return "presenting_suggestions"
	case StateAwaitingEndings:
		return "awaiting_endings"
	case StatePresentingEndings:
		return "presenting_endings"
	case StateConcluded:
		return "concluded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Progressor receives human-readable progress updates.
type Progressor interface {
	UpdateOutput(message string)
}

type nullProgressor struct{}

func (nullProgressor) UpdateOutput(string) {}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateParameters trims every field and reports the first required one
// left blank, checked in the order name, role, genre, language, format.
func ValidateParameters(p NarrativeParameters) (NarrativeParameters, error) {
	p = NarrativeParameters{
		CharacterName:  strings.TrimSpace(p.CharacterName),
		CharacterRole:  strings.TrimSpace(p.CharacterRole),
		Genre:          strings.TrimSpace(p.Genre),
		Language:       strings.TrimSpace(p.Language),
		Format:         strings.TrimSpace(p.Format),
		AestheticStyle: strings.TrimSpace(p.AestheticStyle),
		EraStyle:       strings.TrimSpace(p.EraStyle),
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return p, &MissingFieldError{Field: verrs[0].Field()}
		}
		return p, err
	}
	return p, nil
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithProtocol(p Protocol) SessionOption {
	return func(s *Session) { s.protocol = p }
}

func WithIllustrator(il *Illustrator) SessionOption {
	return func(s *Session) { s.illustrator = il }
}

func WithProgress(p Progressor) SessionOption {
	return func(s *Session) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithOnAppend registers a hook run after every append, typically to
// persist the log.
func WithOnAppend(fn func(*StoryLog) error) SessionOption {
	return func(s *Session) { s.onAppend = fn }
}

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session drives one story from setup to conclusion. All methods are safe
// for concurrent use; at most one generation request is in flight.
type Session struct {
	mu          sync.Mutex
	engine      *Engine
	illustrator *Illustrator
	protocol    Protocol
	progress    Progressor
	onAppend    func(*StoryLog) error
	logger      *zap.Logger

	state       State
	params      NarrativeParameters
	log         *StoryLog
	suggestions *SuggestionSet
	image       ImageRef
	endings     *EndingSet
	inFlight    bool
}

func NewSession(engine *Engine, opts ...SessionOption) *Session {
	s := &Session{
		engine:   engine,
		protocol: ProtocolRich,
		progress: nullProgressor{},
		logger:   zap.NewNop(),
		state:    StateSetup,
		log:      NewStoryLog(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fixes the narrative parameters, records the opening and moves to
// AwaitingSuggestions.
func (s *Session) Start(params NarrativeParameters, opening string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSetup {
		return &TransitionError{Op: "start", State: s.state}
	}
	params, err := ValidateParameters(params)
	if err != nil {
		return err
	}
	if strings.TrimSpace(opening) == "" {
		return fmt.Errorf("opening: %w", ErrEmptyInput)
	}
	s.params = params
	s.appendLocked(opening, ContributorUser, CategoryOpening)
	s.state = StateAwaitingSuggestions
	return nil
}

// Resume continues a previously saved story under the given parameters.
func (s *Session) Resume(params NarrativeParameters, log *StoryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSetup {
		return &TransitionError{Op: "resume", State: s.state}
	}
	if log == nil || log.Len() == 0 {
		return fmt.Errorf("resume: %w", ErrEmptyInput)
	}
	params, err := ValidateParameters(params)
	if err != nil {
		return err
	}
	s.params = params
	s.log = log
	s.state = StateAwaitingSuggestions
	if log.Concluded() {
		s.state = StateConcluded
	}
	return nil
}

func (s *Session) appendLocked(text string, contributor Contributor, category Category) (StorySegment, error) {
	seg, err := s.log.Append(text, contributor, category)
	if err != nil {
		return seg, err
	}
	segmentsAppended.WithLabelValues(contributor.String()).Inc()
	if s.onAppend != nil {
		if err := s.onAppend(s.log); err != nil {
			s.logger.Error("story log hook failed", zap.Int("sequence", seg.Sequence), zap.Error(err))
		}
	}
	return seg, nil
}

// beginLocked checks that op may start from the current state.
func (s *Session) beginLocked(op string, allowed ...State) error {
	if s.state == StateConcluded {
		return ErrConcluded
	}
	if s.inFlight {
		return ErrRequestInFlight
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return &TransitionError{Op: op, State: s.state}
}

// RequestSuggestions runs a suggestion round. Calling it while suggestions
// are presented replaces them. On failure the session is left as it was.
func (s *Session) RequestSuggestions(ctx context.Context, tone string) (SuggestionSet, error) {
	s.mu.Lock()
	if err := s.beginLocked("request suggestions", StateAwaitingSuggestions, StatePresentingSuggestions); err != nil {
		s.mu.Unlock()
		return SuggestionSet{}, err
	}
	prevState, prevSet, prevImage := s.state, s.suggestions, s.image
	s.state = StateAwaitingSuggestions
	s.inFlight = true
	params, text := s.params, s.log.RenderText()
	s.mu.Unlock()

	s.progress.UpdateOutput("Generating suggestions...")
	var (
		set SuggestionSet
		err error
	)
	if s.protocol == ProtocolSimple {
		set, err = s.engine.GenerateSimple(ctx, SimpleContext(text))
	} else {
		set, err = s.engine.Generate(ctx, StoryContext(params, text), params, tone)
	}

	var image ImageRef
	if err == nil && s.protocol != ProtocolSimple {
		if visual, ok := set.Visual(); ok && s.illustrator != nil {
			s.progress.UpdateOutput("Rendering visual concept...")
			image = s.illustrator.Render(ctx, visual)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.state, s.suggestions, s.image = prevState, prevSet, prevImage
		s.progress.UpdateOutput("Suggestions unavailable, try again.")
		return SuggestionSet{}, err
	}
	s.suggestions = &set
	s.image = image
	s.state = StatePresentingSuggestions
	s.progress.UpdateOutput("Suggestions ready.")
	return set, nil
}

// Choose appends the suggestion at index and returns to AwaitingSuggestions.
func (s *Session) Choose(index int) (StorySegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked("choose a suggestion", StatePresentingSuggestions); err != nil {
		return StorySegment{}, err
	}
	if index < 0 || index >= len(s.suggestions.Suggestions) {
		return StorySegment{}, fmt.Errorf("%w: suggestion %d out of range", ErrInvalidChoice, index+1)
	}
	sug := s.suggestions.Suggestions[index]
	category, ok := sug.Kind.Category()
	if !ok {
		return StorySegment{}, fmt.Errorf("%w: %s is not selectable", ErrInvalidChoice, sug.Kind)
	}
	seg, err := s.appendLocked(sug.StoryText(), ContributorAI, category)
	if err != nil {
		return seg, err
	}
	s.clearRoundLocked()
	s.state = StateAwaitingSuggestions
	return seg, nil
}

// Write appends the user's own continuation.
func (s *Session) Write(text string) (StorySegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked("write", StatePresentingSuggestions); err != nil {
		return StorySegment{}, err
	}
	seg, err := s.appendLocked(text, ContributorUser, CategoryFreeForm)
	if err != nil {
		return seg, err
	}
	s.clearRoundLocked()
	s.state = StateAwaitingSuggestions
	return seg, nil
}

// CanEnd reports whether endings may be requested: the story needs at least
// one segment after the opening.
func (s *Session) CanEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Len() > 1
}

// RequestEndings runs an ending round. On success the pending suggestion
// set is discarded; on failure the session is left as it was.
func (s *Session) RequestEndings(ctx context.Context) (EndingSet, error) {
	s.mu.Lock()
	if err := s.beginLocked("request endings",
		StateAwaitingSuggestions, StatePresentingSuggestions, StateAwaitingEndings, StatePresentingEndings); err != nil {
		s.mu.Unlock()
		return EndingSet{}, err
	}
	if s.log.Len() < 2 {
		s.mu.Unlock()
		return EndingSet{}, fmt.Errorf("%w: endings need at least one round after the opening", ErrInvalidTransition)
	}
	prevState, prevEndings := s.state, s.endings
	s.state = StateAwaitingEndings
	s.inFlight = true
	params, text := s.params, s.log.RenderText()
	s.mu.Unlock()

	s.progress.UpdateOutput("Generating endings...")
	endings, err := s.engine.GenerateEndings(ctx, StoryContext(params, text), params)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.state, s.endings = prevState, prevEndings
		s.progress.UpdateOutput("Endings unavailable, try again.")
		return EndingSet{}, err
	}
	s.clearRoundLocked()
	s.endings = &endings
	s.state = StatePresentingEndings
	s.progress.UpdateOutput("Endings ready.")
	return endings, nil
}

// ChooseEnding appends the ending at index and concludes the story.
func (s *Session) ChooseEnding(index int) (StorySegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked("choose an ending", StatePresentingEndings); err != nil {
		return StorySegment{}, err
	}
	if index < 0 || index >= len(s.endings.Endings) {
		return StorySegment{}, fmt.Errorf("%w: ending %d out of range", ErrInvalidChoice, index+1)
	}
	seg, err := s.appendLocked(s.endings.Endings[index], ContributorAI, CategoryEnding)
	if err != nil {
		return seg, err
	}
	s.clearRoundLocked()
	s.state = StateConcluded
	s.progress.UpdateOutput("The story is complete.")
	return seg, nil
}

func (s *Session) clearRoundLocked() {
	s.suggestions = nil
	s.image = ""
	s.endings = nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Log returns a copy of the story log taken under the session lock. Later
// appends do not show up in it.
func (s *Session) Log() *StoryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &StoryLog{segments: s.log.Segments()}
}

// View is a point-in-time copy of a session for display.
type View struct {
	State       State               `json:"state"`
	Params      NarrativeParameters `json:"params"`
	Segments    []StorySegment      `json:"segments"`
	Story       string              `json:"story"`
	Suggestions []Suggestion        `json:"suggestions,omitempty"`
	Image       ImageRef            `json:"image,omitempty"`
	Endings     []string            `json:"endings,omitempty"`
	InFlight    bool                `json:"in_flight"`
	CanEnd      bool                `json:"can_end"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:    s.state,
		Params:   s.params,
		Segments: s.log.Segments(),
		Story:    s.log.RenderText(),
		Image:    s.image,
		InFlight: s.inFlight,
		CanEnd:   s.log.Len() > 1 && s.state != StateConcluded,
	}
	if s.suggestions != nil {
		v.Suggestions = append([]Suggestion(nil), s.suggestions.Suggestions...)
	}
	if s.endings != nil {
		v.Endings = append([]string(nil), s.endings.Endings...)
	}
	return v
}
