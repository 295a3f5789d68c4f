package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	storyverse "github.com/opd-ai/storyverse/src"
)

func newWriteCmd(opts *rootOptions) *cobra.Command {
	var (
		logPath  string
		resume   bool
		imageDir string
		tone     string
		protocol string
		textOut  string
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a story interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(opts, "stderr")
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			if logPath == "" {
				logPath = filepath.Join(a.cfg.DataDir, "story.json")
			}
			if protocol != "" {
				a.cfg.Protocol = storyverse.Protocol(protocol)
			}
			engine, illustrator, err := a.collaborators(ctx)
			if err != nil {
				return err
			}

			w := &terminalWriter{
				in:       bufio.NewScanner(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
				timeout:  a.cfg.RequestTimeout,
				imageDir: imageDir,
				tone:     tone,
			}
			w.session = storyverse.NewSession(engine,
				storyverse.WithProtocol(a.cfg.Protocol),
				storyverse.WithIllustrator(illustrator),
				storyverse.WithProgress(w),
				storyverse.WithLogger(a.logger),
				storyverse.WithOnAppend(func(log *storyverse.StoryLog) error {
					return storyverse.SaveStoryLog(logPath, log)
				}),
			)

			started := false
			if resume {
				started, err = w.resume(logPath)
				if err != nil {
					a.logger.Warn("could not resume, starting a new story", zap.String("log", logPath), zap.Error(err))
				}
			}
			if !started {
				params, opening, ok := w.setup()
				if !ok {
					return nil
				}
				if err := w.session.Start(params, opening); err != nil {
					return err
				}
				if err := storyverse.SaveParams(storyverse.ParamsPath(logPath), w.session.View().Params); err != nil {
					a.logger.Error("saving story parameters failed", zap.Error(err))
				}
			}

			if err := w.loop(ctx); err != nil {
				return err
			}
			if textOut == "" {
				textOut = filepath.Join(filepath.Dir(logPath), storyverse.StoryFileName)
			}
			if err := storyverse.SaveStoryText(textOut, w.session.Log()); err != nil {
				return err
			}
			fmt.Fprintf(w.out, "\nSaved to %s (log: %s)\n", textOut, logPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "story log file (defaults to DATA_DIR/story.json)")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue the story saved in --log")
	cmd.Flags().StringVar(&imageDir, "images", "", "directory to save rendered visual concepts in")
	cmd.Flags().StringVar(&tone, "tone", "", "default tone for suggestions")
	cmd.Flags().StringVar(&protocol, "protocol", "", "suggestion protocol, rich or simple (defaults to STORY_PROTOCOL)")
	cmd.Flags().StringVar(&textOut, "text", "", "where to write the finished text")
	return cmd
}

// terminalWriter runs a Session as a line-oriented conversation.
type terminalWriter struct {
	in       *bufio.Scanner
	out      io.Writer
	session  *storyverse.Session
	timeout  time.Duration
	imageDir string
	tone     string
	images   int

	// last image written to imageDir and where it went
	savedImage storyverse.ImageRef
	savedPath  string
}

// UpdateOutput prints session progress.
func (w *terminalWriter) UpdateOutput(message string) {
	fmt.Fprintf(w.out, "... %s\n", message)
}

func (w *terminalWriter) ask(prompt string) (string, bool) {
	fmt.Fprintf(w.out, "%s ", prompt)
	if !w.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(w.in.Text()), true
}

// pick shows a numbered menu. Anything that is not a listed number is taken
// as a custom value; a blank answer is only accepted when optional.
func (w *terminalWriter) pick(label string, options []string, optional bool) (string, bool) {
	fmt.Fprintf(w.out, "\n%s:\n", label)
	for i, opt := range options {
		fmt.Fprintf(w.out, "  %2d. %s\n", i+1, opt)
	}
	hint := "Choose a number or type your own"
	if optional {
		hint += " (Enter to skip)"
	}
	for {
		answer, ok := w.ask(hint + ":")
		if !ok {
			return "", false
		}
		if answer == "" {
			if optional {
				return "", true
			}
			continue
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return answer, true
	}
}

func (w *terminalWriter) setup() (storyverse.NarrativeParameters, string, bool) {
	var p storyverse.NarrativeParameters
	var ok bool
	for p.CharacterName == "" {
		if p.CharacterName, ok = w.ask("Main character's name:"); !ok {
			return p, "", false
		}
	}
	steps := []struct {
		label    string
		options  []string
		optional bool
		dst      *string
	}{
		{"Role", storyverse.CharacterRoles, false, &p.CharacterRole},
		{"Genre", storyverse.Genres, false, &p.Genre},
		{"Language", storyverse.Languages, false, &p.Language},
		{"Format", storyverse.StoryFormats, false, &p.Format},
		{"Aesthetic style", storyverse.AestheticStyles, true, &p.AestheticStyle},
		{"Era", storyverse.StoryEras, true, &p.EraStyle},
	}
	for _, s := range steps {
		if *s.dst, ok = w.pick(s.label, s.options, s.optional); !ok {
			return p, "", false
		}
	}

	var opening string
	for opening == "" {
		if opening, ok = w.ask("\nWrite the opening of your story:\n>"); !ok {
			return p, "", false
		}
	}
	return p, opening, true
}

// resume continues the story saved at logPath. It reports false when there
// is nothing to resume.
func (w *terminalWriter) resume(logPath string) (bool, error) {
	log, err := storyverse.LoadStoryLog(logPath)
	if err != nil {
		return false, err
	}
	if log.Len() == 0 {
		return false, nil
	}
	params, err := storyverse.LoadParams(storyverse.ParamsPath(logPath))
	if err != nil {
		return false, err
	}
	if err := w.session.Resume(params, log); err != nil {
		return false, err
	}
	fmt.Fprintf(w.out, "Resuming %s's story (%d passages).\n", params.CharacterName, log.Len())
	return true, nil
}

// loop drives the session until the story concludes or the user quits.
func (w *terminalWriter) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		view := w.session.View()
		switch view.State {
		case storyverse.StateConcluded:
			fmt.Fprintf(w.out, "\n%s\n\nThe End.\n", view.Story)
			return nil

		case storyverse.StateAwaitingSuggestions:
			fmt.Fprintf(w.out, "\n%s\n\n", view.Story)
			hint := `Enter for suggestions (or type a tone), "q" to quit`
			if view.CanEnd {
				hint = `Enter for suggestions (or type a tone), "e" for endings, "q" to quit`
			}
			answer, ok := w.ask(hint + ":")
			if !ok || answer == "q" {
				return nil
			}
			if answer == "e" {
				w.requestEndings(ctx)
				continue
			}
			tone := w.tone
			if answer != "" {
				tone = answer
			}
			w.requestSuggestions(ctx, tone)

		case storyverse.StatePresentingSuggestions:
			w.showSuggestions(view)
			answer, ok := w.ask(`Pick a number, write your own line, "r" for new ideas, "e" to end, "q" to quit:`)
			if !ok || answer == "q" {
				return nil
			}
			switch answer {
			case "":
				continue
			case "r":
				w.requestSuggestions(ctx, w.tone)
				continue
			case "e":
				w.requestEndings(ctx)
				continue
			}
			var err error
			if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(view.Suggestions) {
				_, err = w.session.Choose(n - 1)
			} else {
				_, err = w.session.Write(answer)
			}
			if err != nil {
				w.report(err)
			}

		case storyverse.StatePresentingEndings:
			fmt.Fprintln(w.out, "\nHow does it end?")
			for i, e := range view.Endings {
				fmt.Fprintf(w.out, "  %d. %s\n", i+1, e)
			}
			answer, ok := w.ask(`Pick an ending, "r" for new endings, "q" to quit:`)
			if !ok || answer == "q" {
				return nil
			}
			if answer == "r" {
				w.requestEndings(ctx)
				continue
			}
			n, err := strconv.Atoi(answer)
			if err != nil {
				continue
			}
			if _, err := w.session.ChooseEnding(n - 1); err != nil {
				w.report(err)
			}

		default:
			return fmt.Errorf("unexpected state %s", view.State)
		}
	}
}

func (w *terminalWriter) requestSuggestions(ctx context.Context, tone string) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if _, err := w.session.RequestSuggestions(ctx, tone); err != nil {
		w.report(err)
	}
}

func (w *terminalWriter) requestEndings(ctx context.Context) {
	if !w.session.CanEnd() {
		fmt.Fprintln(w.out, "Add at least one more passage before ending the story.")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if _, err := w.session.RequestEndings(ctx); err != nil {
		w.report(err)
	}
}

func (w *terminalWriter) showSuggestions(view storyverse.View) {
	fmt.Fprintln(w.out, "\nWhat happens next?")
	for i, s := range view.Suggestions {
		if !s.Selectable() {
			fmt.Fprintf(w.out, "   * %s\n     (%s)\n", s.Text, s.Commentary)
			continue
		}
		fmt.Fprintf(w.out, "  %d. %s\n     (%s)\n", i+1, s.Text, s.Commentary)
	}
	if view.Image == "" {
		return
	}
	if view.Image.IsPlaceholder() {
		fmt.Fprintf(w.out, "   Illustration unavailable: %s\n", view.Image)
		return
	}
	if w.imageDir == "" {
		fmt.Fprintln(w.out, "   Illustration ready (pass --images to save it).")
		return
	}
	if view.Image != w.savedImage {
		path, err := saveDataURI(w.imageDir, fmt.Sprintf("concept-%02d", w.images+1), string(view.Image))
		if err != nil {
			w.report(err)
			return
		}
		w.images++
		w.savedImage, w.savedPath = view.Image, path
	}
	fmt.Fprintf(w.out, "   Illustration saved to %s\n", w.savedPath)
}

func (w *terminalWriter) report(err error) {
	switch {
	case errors.Is(err, storyverse.ErrGenerationUnavailable):
		fmt.Fprintln(w.out, "The co-author is unavailable right now, try again.")
	case errors.Is(err, storyverse.ErrInvalidChoice):
		fmt.Fprintln(w.out, "That one can't be added to the story.")
	case errors.Is(err, storyverse.ErrEmptyInput):
		fmt.Fprintln(w.out, "Nothing to add.")
	default:
		fmt.Fprintf(w.out, "Error: %v\n", err)
	}
}

// saveDataURI writes a base64 data URI to dir/name with an extension
// matching its media type.
func saveDataURI(dir, name, uri string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", errors.New("not a base64 data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	ext := ".img"
	if exts, _ := mime.ExtensionsByType(strings.TrimSuffix(header, ";base64")); len(exts) > 0 {
		ext = exts[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+ext)
	return path, os.WriteFile(path, data, 0o644)
}
