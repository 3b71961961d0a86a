package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Profiles *ProfileHandler
	Sessions *SessionHandler
	Tokens   TokenValidator
	// Metrics serves GET /metrics when set.
	Metrics    http.Handler
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// NewRouter wires the JSON API. Routes under /me, /study-sessions and
// /logout require a login token.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Users != nil {
		r.Post("/users", cfg.Users.Register)
		r.Get("/users", cfg.Users.Search)
	}
	if cfg.Auth != nil {
		r.Post("/login", cfg.Auth.Login)
	}

	if cfg.Tokens == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(cfg.Tokens, cfg.Logger))

		if cfg.Auth != nil {
			r.Post("/logout", cfg.Auth.Logout)
		}

		if cfg.Profiles != nil {
			r.Route("/me", func(r chi.Router) {
				r.Get("/courses", cfg.Profiles.ListCourses)
				r.Post("/courses", cfg.Profiles.AddCourse)
				r.Delete("/courses/{name}", cfg.Profiles.RemoveCourse)
				r.Get("/availability", cfg.Profiles.ListAvailability)
				r.Post("/availability", cfg.Profiles.AddAvailability)
				r.Delete("/availability", cfg.Profiles.RemoveAvailability)
				r.Get("/matches", cfg.Profiles.Matches)
			})
		}

		if cfg.Sessions != nil {
			r.Route("/study-sessions", func(r chi.Router) {
				r.Get("/", cfg.Sessions.List)
				r.Post("/", cfg.Sessions.Propose)
				r.Get("/{id}", cfg.Sessions.Get)
				r.Post("/{id}/confirm", cfg.Sessions.Confirm)
				r.Post("/{id}/reject", cfg.Sessions.Reject)
			})
		}
	})

	return r
}
