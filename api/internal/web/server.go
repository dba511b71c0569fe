// Package web is the browser front-end: a single page with a drawing canvas
// and a small JSON API over one shell.App per session cookie.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Surihub/handmath/api/internal/latex"
	"github.com/Surihub/handmath/api/internal/shell"
)

const (
	SessionCookie = "handmath_sid"
	sessionMaxAge = 30 * 24 * time.Hour
	maxBody       = 1 << 20
)

//go:embed page.html
var pageHTML string

type ctxKey struct{}

type Server struct {
	sessions *shell.Manager
	render   *latex.Renderer
	policy   *bluemonday.Policy
	page     *template.Template
	log      *slog.Logger
}

func New(sessions *shell.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	r := latex.NewRenderer()
	r.Logger = log
	return &Server{
		sessions: sessions,
		render:   r,
		policy:   fragmentPolicy(),
		page:     template.Must(template.New("page").Parse(pageHTML)),
		log:      log,
	}
}

// Routes mounts the page and its API on r.
func (s *Server) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.session)

		r.Get("/", s.handlePage)
		r.Get("/state", s.handleState)
		r.Post("/mode", s.handleMode)
		r.Post("/problem/new", s.handleNewProblem)
		r.Post("/hint", s.handleHint)
		r.Post("/submit", s.handleSubmit)
		r.Post("/recognize", s.handleRecognize)

		r.Route("/canvas", func(r chi.Router) {
			r.Post("/clear", s.handleCanvasClear)
			r.Post("/stroke", s.handleStroke)
			r.Post("/resize", s.handleResize)
		})
		r.Get("/canvas.png", s.handleCanvasPNG)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleHistory)
			r.Delete("/", s.handleClearHistory)
			r.Delete("/{id}", s.handleDeleteEntry)
		})
	})
}

// Router returns a standalone router with the usual middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	s.Routes(r)
	return r
}

// session attaches the caller's App to the request, issuing a cookie when
// the browser has none (or a malformed one).
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid uuid.UUID
		if c, err := r.Cookie(SessionCookie); err == nil {
			sid, _ = uuid.Parse(c.Value)
		}
		if sid == uuid.Nil {
			sid = uuid.New()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid.String(),
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
			})
		}
		app, err := s.sessions.Get(r.Context(), "sid:"+sid.String())
		if err != nil {
			s.log.Error("web: open session", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, app)))
	})
}

func appFrom(r *http.Request) *shell.App {
	return r.Context().Value(ctxKey{}).(*shell.App)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
