// internal/httpserver/server.go
//
// HTTP server wiring for the game center backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Play endpoints (optional auth): /play/* plus the live /play/{id}/ws stream.
//   - Scoring API: /score/*, /game/*, /user/{id}/stats, /game-types.
//   - Achievement API: /achievement/*.
//   - Auth + profile endpoints: /auth/*, /stats/me, /games/mine.
//   - Daily challenge leaderboards: /daily/*.
//
// Notes:
//   - Every JSON response uses the {success, message, data} envelope.
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates every request with the user when a valid token is
//     present; guests play under an anonymous cookie id.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gamecentr/internal/achievement"
	"github.com/robalobadob/gamecentr/internal/auth"
	"github.com/robalobadob/gamecentr/internal/catalog"
	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/games"
	"github.com/robalobadob/gamecentr/internal/games/pong"
	"github.com/robalobadob/gamecentr/internal/round"
	"github.com/robalobadob/gamecentr/internal/score"
	"github.com/robalobadob/gamecentr/internal/store"
)

// Options are the static server settings.
type Options struct {
	Origins        []string
	DailySalt      string
	Words          []string      // hangman word list
	SubmitTimeout  time.Duration // per score submission and finish hook
	HandlerTimeout time.Duration
}

// Deps are the stores and services the handlers use.
type Deps struct {
	Sessions     store.Store
	Scores       *score.Store
	Recorder     *score.LocalSubmitter
	Submitter    round.Submitter // where finished games report; defaults to Recorder
	Achievements *achievement.Service
	Auth         *auth.Auth
	Daily        *daily.Store
	Clock        clockwork.Clock
	Log          zerolog.Logger
}

// Server bundles the router and its dependencies.
type Server struct {
	r   *chi.Mux
	opt Options
	Deps
	cat *catalog.Catalog
}

// New constructs a Server, installs middleware, and registers routes.
func New(opt Options, d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Submitter == nil {
		d.Submitter = d.Recorder
	}
	if opt.SubmitTimeout <= 0 {
		opt.SubmitTimeout = 10 * time.Second
	}
	if opt.HandlerTimeout <= 0 {
		opt.HandlerTimeout = 10 * time.Second
	}
	s := &Server{r: chi.NewRouter(), opt: opt, Deps: d, cat: d.Achievements.Catalog()}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors().Handler)
	s.r.Use(s.Auth.Optional)

	s.r.Route("/play", func(r chi.Router) {
		// The live stream hijacks the connection, so it sits outside the timeout.
		r.Get("/{id}/ws", s.handleWatch)
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(opt.HandlerTimeout))
			r.Use(jsonContentType)
			s.mountPlay(r)
		})
	})

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opt.HandlerTimeout))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ok(w, "", map[string]any{
				"service": "gamecentr",
				"games":   append(games.Codes(), pong.Code),
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			ok(w, "", map[string]bool{"ok": true})
		})

		s.mountScores(r)
		s.mountAchievements(r)
		s.mountAuth(r)
		s.mountDaily(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, "Not found: "+r.URL.Path)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows credentialed requests from the configured client origins.
func (s *Server) cors() *cors.Cors {
	origins := s.opt.Origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
}

// ------------------------------ responses ----------------------------------

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg, Data: data})
}

func created(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: msg, Data: data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}

var errBadJSON = errors.New("invalid JSON body")

// statusOf maps domain errors to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, score.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadJSON),
		errors.Is(err, games.ErrUnknownGame),
		errors.Is(err, score.ErrUnknownGame),
		errors.Is(err, score.ErrNoOwner),
		errors.Is(err, score.ErrEmptyComment),
		errors.Is(err, achievement.ErrUnknownGame),
		errors.Is(err, daily.ErrBadTimeFrame),
		errors.Is(err, auth.ErrInvalidSignup),
		errors.Is(err, round.ErrInvalidInput),
		errors.Is(err, pong.ErrUnknownKey):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrBadLogin):
		return http.StatusUnauthorized
	case errors.Is(err, round.ErrFinished),
		errors.Is(err, round.ErrNotAccepting),
		errors.Is(err, round.ErrAlreadyStarted),
		errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, round.ErrClosed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

// failErr writes err with its mapped status. Unknown errors are logged and
// reported without detail.
func (s *Server) failErr(w http.ResponseWriter, r *http.Request, err error) {
	st := statusOf(err)
	if st == http.StatusInternalServerError {
		s.Log.Error().Err(err).
			Str("requestId", chimw.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		fail(w, st, "Internal server error")
		return
	}
	fail(w, st, err.Error())
}
