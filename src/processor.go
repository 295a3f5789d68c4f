package storyverse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Engine turns story context into suggestion and ending sets.
type Engine struct {
	text   TextGenerator
	logger *zap.Logger
}

func NewEngine(text TextGenerator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{text: text, logger: logger}
}

func (e *Engine) call(ctx context.Context, kind string, prompt Prompt) (string, error) {
	start := time.Now()
	reply, err := e.text.SendMessage(ctx, prompt.System, prompt.User)
	generationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("blank reply")
	}
	if err != nil {
		generationRequests.WithLabelValues(kind, "error").Inc()
		e.logger.Error("text generation failed", zap.String("kind", kind), zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", ErrGenerationUnavailable, kind, err)
	}
	generationRequests.WithLabelValues(kind, "ok").Inc()
	e.logger.Debug("text generation reply", zap.String("kind", kind), zap.String("reply", reply))
	return reply, nil
}

func (e *Engine) warnShortfall(warn *ShortfallWarning) {
	if warn == nil {
		return
	}
	parseShortfalls.WithLabelValues(warn.Kind).Inc()
	e.logger.Warn("padded generation reply",
		zap.String("kind", warn.Kind),
		zap.Int("expected", warn.Expected),
		zap.Int("got", warn.Got))
}

// Generate runs one rich suggestion round: three continuations, a bonus
// idea and a visual concept.
func (e *Engine) Generate(ctx context.Context, storyContext string, params NarrativeParameters, tone string) (SuggestionSet, error) {
	reply, err := e.call(ctx, "suggestions", BuildSuggestionPrompt(storyContext, params, tone))
	if err != nil {
		return SuggestionSet{}, err
	}
	suggestions, warn := PadSuggestions(ParseSuggestions(reply))
	e.warnShortfall(warn)
	return SuggestionSet{Suggestions: suggestions}, nil
}

// GenerateSimple runs one round of the three-line numbered protocol.
func (e *Engine) GenerateSimple(ctx context.Context, storyContext string) (SuggestionSet, error) {
	reply, err := e.call(ctx, "simple", BuildSimplePrompt(storyContext))
	if err != nil {
		return SuggestionSet{}, err
	}
	suggestions, warn := PadSimple(ParseNumbered(reply))
	e.warnShortfall(warn)
	return SuggestionSet{Suggestions: suggestions}, nil
}

// GenerateEndings asks for two or three candidate endings.
func (e *Engine) GenerateEndings(ctx context.Context, storyContext string, params NarrativeParameters) (EndingSet, error) {
	reply, err := e.call(ctx, "endings", BuildEndingPrompt(storyContext, params))
	if err != nil {
		return EndingSet{}, err
	}
	endings, warn := PadEndings(ParseNumbered(reply))
	e.warnShortfall(warn)
	return endings, nil
}
