package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opd-ai/storyverse/bookcompiler"
	storyverse "github.com/opd-ai/storyverse/src"
	"github.com/opd-ai/storyverse/srv/generator"
)

type pageData struct {
	View    *storyverse.View
	Roles   []string
	Genres  []string
	Langs   []string
	Formats []string
	Styles  []string
	Eras    []string
	Tones   []string
}

func (ui *StoryUI) handleHome(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Roles:   storyverse.CharacterRoles,
		Genres:  storyverse.Genres,
		Langs:   storyverse.Languages,
		Formats: storyverse.StoryFormats,
		Styles:  storyverse.AestheticStyles,
		Eras:    storyverse.StoryEras,
		Tones:   []string{"", "lighter", "darker", "funnier", "stranger"},
	}
	if sess := ui.lookup(sessionID(r)); sess != nil {
		view := sess.Story.View()
		data.View = &view
	}

	var buf bytes.Buffer
	if err := ui.page.Execute(&buf, data); err != nil {
		ui.logger.Error("rendering page failed", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (ui *StoryUI) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	id := sessionID(r)
	if ui.lookup(id) != nil {
		ui.writeError(w, r, fmt.Errorf("%w: a story is already under way", storyverse.ErrInvalidTransition))
		return
	}

	params := storyverse.NarrativeParameters{
		CharacterName:  r.FormValue("character_name"),
		CharacterRole:  r.FormValue("character_role"),
		Genre:          r.FormValue("genre"),
		Language:       r.FormValue("language"),
		Format:         r.FormValue("format"),
		AestheticStyle: r.FormValue("aesthetic_style"),
		EraStyle:       r.FormValue("era_style"),
	}
	sess := ui.newSession(id)
	if err := sess.Story.Start(params, r.FormValue("opening")); err != nil {
		ui.writeError(w, r, err)
		return
	}
	if err := ui.store.SaveParams(id, sess.Story.View().Params); err != nil {
		ui.logger.Error("saving story parameters failed", zap.String("session", id), zap.Error(err))
	}

	ui.sessionsM.Lock()
	ui.sessions.SetDefault(id, sess)
	ui.sessionsM.Unlock()

	ui.logger.Info("story started", zap.String("session", id), zap.String("genre", params.Genre))
	sess.Progress.UpdateOutput("Story started.")
	ui.respond(w, r, sess)
}

// handleNew abandons the current story by issuing a fresh session id. The
// old story stays on disk.
func (ui *StoryUI) handleNew(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	setSessionCookie(w, id)
	w.Header().Set("X-Session-Id", id)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ui *StoryUI) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sess, ok := ui.requireSession(w, r)
	if !ok {
		return
	}
	tone := strings.TrimSpace(r.FormValue("tone"))
	err := generator.Run(r.Context(), sess.Progress, ui.cfg.RequestTimeout, "Generating suggestions", func(ctx context.Context) error {
		_, err := sess.Story.RequestSuggestions(ctx, tone)
		return err
	})
	if err != nil {
		ui.writeError(w, r, err)
		return
	}
	ui.respond(w, r, sess)
}

// handleChoose accepts either a 1-based suggestion number in "choice" or
// the user's own continuation in "text".
func (ui *StoryUI) handleChoose(w http.ResponseWriter, r *http.Request) {
	sess, ok := ui.requireSession(w, r)
	if !ok {
		return
	}
	var err error
	if choice := strings.TrimSpace(r.FormValue("choice")); choice != "" {
		n, convErr := strconv.Atoi(choice)
		if convErr != nil {
			ui.writeError(w, r, fmt.Errorf("%w: %q is not a number", storyverse.ErrInvalidChoice, choice))
			return
		}
		_, err = sess.Story.Choose(n - 1)
	} else {
		_, err = sess.Story.Write(r.FormValue("text"))
	}
	if err != nil {
		ui.writeError(w, r, err)
		return
	}
	ui.respond(w, r, sess)
}

func (ui *StoryUI) handleEndings(w http.ResponseWriter, r *http.Request) {
	sess, ok := ui.requireSession(w, r)
	if !ok {
		return
	}
	err := generator.Run(r.Context(), sess.Progress, ui.cfg.RequestTimeout, "Generating endings", func(ctx context.Context) error {
		_, err := sess.Story.RequestEndings(ctx)
		return err
	})
	if err != nil {
		ui.writeError(w, r, err)
		return
	}
	ui.respond(w, r, sess)
}

func (ui *StoryUI) handleEnding(w http.ResponseWriter, r *http.Request) {
	sess, ok := ui.requireSession(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("choice")))
	if err != nil {
		ui.writeError(w, r, fmt.Errorf("%w: ending must be a number", storyverse.ErrInvalidChoice))
		return
	}
	if _, err := sess.Story.ChooseEnding(n - 1); err != nil {
		ui.writeError(w, r, err)
		return
	}
	sess.Progress.UpdateState(generator.StateConcluded)
	ui.respond(w, r, sess)
}

func (ui *StoryUI) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := ui.requireSession(w, r)
	if !ok {
		return
	}
	view := sess.Story.View()
	log := sess.Story.Log()

	switch format := r.URL.Query().Get("format"); format {
	case "", "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+storyverse.StoryFileName+`"`)
		w.Write(storyverse.ExportText(log))
	case "json":
		data, err := log.Serialize()
		if err != nil {
			ui.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="story.json"`)
		w.Write(data)
	case "pdf":
		var buf bytes.Buffer
		if err := bookcompiler.CompileStory(&buf, view.Params, log); err != nil {
			ui.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="story.pdf"`)
		buf.WriteTo(w)
	default:
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
	}
}

func (ui *StoryUI) handleGetStory(w http.ResponseWriter, r *http.Request) {
	sess, ok := ui.requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Story.View())
}

func (ui *StoryUI) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	sess := ui.lookup(sessionID(r))
	if sess == nil {
		writeJSON(w, http.StatusOK, []generator.WSMessage{})
		return
	}
	writeJSON(w, http.StatusOK, sess.Progress.History())
}

func (ui *StoryUI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ui *StoryUI) requireSession(w http.ResponseWriter, r *http.Request) (*storySession, bool) {
	sess := ui.lookup(sessionID(r))
	if sess == nil {
		if wantsJSON(r) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no story in progress"})
		} else {
			http.Error(w, "No story in progress", http.StatusNotFound)
		}
		return nil, false
	}
	return sess, true
}

// respond finishes a successful action: JSON clients get the new view,
// browsers are sent back to the page.
func (ui *StoryUI) respond(w http.ResponseWriter, r *http.Request, sess *storySession) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, sess.Story.View())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ui *StoryUI) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		ui.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		ui.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	http.Error(w, err.Error(), status)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, storyverse.ErrMissingParameter),
		errors.Is(err, storyverse.ErrEmptyInput),
		errors.Is(err, storyverse.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, storyverse.ErrInvalidTransition),
		errors.Is(err, storyverse.ErrConcluded),
		errors.Is(err, storyverse.ErrRequestInFlight):
		return http.StatusConflict
	case errors.Is(err, storyverse.ErrGenerationUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
