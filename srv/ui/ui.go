// Package ui serves the browser front end for co-writing a story.
package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	storyverse "github.com/opd-ai/storyverse/src"
	"github.com/opd-ai/storyverse/srv/generator"
	"github.com/opd-ai/storyverse/srv/util"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "session_id"

type ctxKey struct{}

// storySession pairs a writing session with the progress feed its
// websocket clients watch.
type storySession struct {
	ID       string
	Story    *storyverse.Session
	Progress *generator.Progress
}

// StoryUI is the web front end. Each browser gets one story, keyed by its
// session cookie and persisted under the configured story directory.
type StoryUI struct {
	router      chi.Router
	cfg         *storyverse.Config
	engine      *storyverse.Engine
	illustrator *storyverse.Illustrator
	sessions    *cache.Cache
	sessionsM   sync.Mutex
	store       storyStore
	page        *template.Template
	logger      *zap.Logger
}

func NewStoryUI(cfg *storyverse.Config, engine *storyverse.Engine, illustrator *storyverse.Illustrator, logger *zap.Logger) (*StoryUI, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := template.New("index.html").Funcs(template.FuncMap{
		"imageURL": func(ref storyverse.ImageRef) template.URL { return template.URL(ref) },
		"inc":      func(i int) int { return i + 1 },
		"kind":     kindLabel,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	ui := &StoryUI{
		router:      chi.NewRouter(),
		cfg:         cfg,
		engine:      engine,
		illustrator: illustrator,
		sessions:    cache.New(24*time.Hour, 1*time.Hour),
		store:       storyStore{dir: cfg.StoryDir()},
		page:        page,
		logger:      logger,
	}
	ui.setupRoutes()
	return ui, nil
}

func (ui *StoryUI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ui.router.ServeHTTP(w, r)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Requested-With")
		w.Header().Set("Access-Control-Expose-Headers", "X-Session-Id")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware makes sure every request carries a valid session id,
// issuing a new cookie when it does not.
func sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if cookie, err := r.Cookie(sessionCookie); err == nil && isValidSession(cookie.Value) {
			sessionID = cookie.Value
		} else {
			sessionID = uuid.New().String()
			setSessionCookie(w, sessionID)
		}
		w.Header().Set("X-Session-Id", sessionID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sessionID)))
	})
}

func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   86400, // 24 hours
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func isValidSession(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	_, err := uuid.Parse(sessionID)
	return err == nil
}

func (ui *StoryUI) setupRoutes() {
	ui.router.Use(middleware.RequestID)
	ui.router.Use(middleware.RealIP)
	ui.router.Use(util.LoggingMiddleware(ui.logger))
	ui.router.Use(util.RecoveryMiddleware(ui.logger))
	ui.router.Use(corsMiddleware)

	ui.router.Get("/healthz", ui.handleHealth)
	ui.router.Handle("/metrics", promhttp.Handler())

	ui.router.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)

		r.Get("/", ui.handleHome)
		r.Get("/api/story", ui.handleGetStory)
		r.Get("/api/events", ui.handleGetEvents)
		r.Get("/story/download", ui.handleDownload)
		r.Get("/ws", ui.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(ui.cfg.RateLimit, time.Minute))
			r.Post("/story", ui.handleStart)
			r.Post("/story/new", ui.handleNew)
			r.Post("/story/suggestions", ui.handleSuggestions)
			r.Post("/story/choose", ui.handleChoose)
			r.Post("/story/endings", ui.handleEndings)
			r.Post("/story/ending", ui.handleEnding)
		})
	})
}

// newSession builds a writing session whose log is saved after every append.
func (ui *StoryUI) newSession(id string) *storySession {
	progress := generator.NewProgress(id, ui.logger)
	story := storyverse.NewSession(ui.engine,
		storyverse.WithProtocol(ui.cfg.Protocol),
		storyverse.WithIllustrator(ui.illustrator),
		storyverse.WithProgress(progress),
		storyverse.WithLogger(ui.logger.With(zap.String("session", id))),
		storyverse.WithOnAppend(func(log *storyverse.StoryLog) error {
			return ui.store.SaveLog(id, log)
		}),
	)
	return &storySession{ID: id, Story: story, Progress: progress}
}

// lookup returns the session for id, resuming it from disk when it has
// fallen out of memory. It returns nil when no story exists yet.
func (ui *StoryUI) lookup(id string) *storySession {
	ui.sessionsM.Lock()
	defer ui.sessionsM.Unlock()

	if v, ok := ui.sessions.Get(id); ok {
		return v.(*storySession)
	}
	params, log, ok, err := ui.store.Load(id)
	if err != nil {
		ui.logger.Warn("could not load saved story", zap.String("session", id), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	sess := ui.newSession(id)
	if err := sess.Story.Resume(params, log); err != nil {
		ui.logger.Warn("could not resume saved story", zap.String("session", id), zap.Error(err))
		return nil
	}
	if sess.Story.State() == storyverse.StateConcluded {
		sess.Progress.UpdateState(generator.StateConcluded)
	}
	ui.sessions.SetDefault(id, sess)
	ui.logger.Info("resumed story", zap.String("session", id), zap.Int("segments", log.Len()))
	return sess
}
