// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily challenge mode.
//   - GET /daily/{game}/status      → today's date and whether the caller played
//   - GET /daily/{game}/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Daily sessions themselves start through POST /play/{game}?daily=1; every
// player gets the same challenges because the session RNG is seeded from the
// date, the game and DAILY_SALT. One counted attempt per player and day.

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/games"
	"github.com/robalobadob/gamecentr/internal/games/pong"
)

func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily/{game}", func(r chi.Router) {
		r.Use(knownGame)
		r.Get("/status", s.handleDailyStatus)
		r.Get("/leaderboard", s.handleDailyLeaderboard)
	})
}

// knownGame rejects game codes that cannot be played.
func knownGame(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "game")
		if code != pong.Code && !games.Known(code) {
			fail(w, http.StatusNotFound, "Unknown game: "+code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type dailyStatusRes struct {
	Game   string `json:"gameCode"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	game, date := chi.URLParam(r, "game"), daily.DateKey(s.Clock.Now())
	played, err := s.Daily.AlreadyPlayed(r.Context(), s.Auth.Owner(w, r), game, date)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", dailyStatusRes{Game: game, Date: date, Played: played})
}

// lbRes is returned by /daily/{game}/leaderboard.
type lbRes struct {
	Game string        `json:"gameCode"`
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleDailyLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	game, date := chi.URLParam(r, "game"), r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.Clock.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		fail(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	rows, err := s.Daily.Leaderboard(r.Context(), game, date, limitParam(r, 20))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", lbRes{Game: game, Date: date, Top: rows})
}
