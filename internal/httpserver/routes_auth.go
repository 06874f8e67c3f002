// internal/httpserver/routes_auth.go
//
// Authentication + profile routes.
//   - POST /auth/signup, /auth/login → set the auth cookie and claim the
//     caller's anonymous scores and daily results
//   - POST /auth/logout              → clear the auth cookie
//   - GET  /auth/me                  → current user (auth)
//   - GET  /stats/me                 → play counters (auth)
//   - GET  /games/mine               → recent scores (auth)

package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/gamecentr/internal/auth"
)

func (s *Server) mountAuth(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Require)
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			me, _ := auth.FromContext(r.Context())
			ok(w, "", me)
		})
		r.Get("/stats/me", s.handleMyStats)
		r.Get("/games/mine", s.handleMyGames)
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSignup creates a new user, signs a JWT, sets auth cookie, and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		s.failErr(w, r, err)
		return
	}
	u, err := s.Auth.Users.Create(r.Context(), body.Username, body.Password)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	created(w, "Account created", u)
}

// handleLogin authenticates user, sets cookie, and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decode(r, &body); err != nil {
		s.failErr(w, r, err)
		return
	}
	u, err := s.Auth.Users.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	ok(w, "Logged in", u)
}

// signIn issues the token cookie for u and moves anonymous history over.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *auth.User) bool {
	tok, exp, err := s.Auth.Tokens.Sign(u.ID, u.Username)
	if err != nil {
		s.failErr(w, r, err)
		return false
	}
	s.Auth.SetCookie(w, tok, exp)
	s.claimAnon(r.Context(), s.Auth.AnonID(r), u.ID)
	return true
}

// claimAnon is best effort: failures are logged, never returned.
func (s *Server) claimAnon(ctx context.Context, anonID, userID string) {
	if anonID == "" {
		return
	}
	n, err := s.Scores.Claim(ctx, anonID, userID)
	if err != nil {
		s.Log.Warn().Err(err).Str("user", userID).Msg("claim anon scores")
	}
	if err := s.Daily.Claim(ctx, anonID, userID); err != nil {
		s.Log.Warn().Err(err).Str("user", userID).Msg("claim anon daily results")
	}
	if n > 0 {
		s.Log.Info().Str("user", userID).Int64("scores", n).Msg("claimed anonymous scores")
	}
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearCookie(w)
	ok(w, "Logged out", nil)
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	u, err := s.Auth.Users.ByID(r.Context(), me.ID)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", map[string]any{
		"id":          u.ID,
		"gamesPlayed": u.GamesPlayed,
		"wins":        u.Wins,
		"streak":      u.Streak,
	})
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.FromContext(r.Context())
	list, err := s.Scores.ListByUser(r.Context(), me.ID, r.URL.Query().Get("game"), limitParam(r, 50))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", list)
}
