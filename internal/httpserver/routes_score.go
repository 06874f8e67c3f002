// internal/httpserver/routes_score.go
//
// Scoring API routes.
//   - GET  /score                          → newest scores (?game=&owner=&limit=)
//   - POST /score                          → record {value, text, owner, game, metadata}
//   - GET  /score/{id}                     → one score with its comments
//   - POST /score/addComment               → {scoreId, text} (auth)
//   - GET  /game/leaderboard               → global ranking across games
//   - GET  /game/{game}/score              → newest scores of one game
//   - POST /game/{game}/score              → record a score for game
//   - POST /game/{game}/score/{id}/comment → comment on a score of game (auth)
//   - GET  /game/{game}/leaderboard        → ranking + stats (?timeFrame=&limit=)
//   - GET  /game/{game}/user/{userId}/scores
//   - GET  /user/{id}/stats                → overall and per-game stats
//   - GET  /game-types, /game-types/{code} → the catalog

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/gamecentr/internal/auth"
	"github.com/robalobadob/gamecentr/internal/catalog"
	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/score"
)

func (s *Server) mountScores(r chi.Router) {
	r.Route("/score", func(r chi.Router) {
		r.Get("/", s.handleListScores)
		r.Post("/", s.handleRecordScore)
		r.With(s.Auth.Require).Post("/addComment", s.handleAddComment)
		r.Get("/{id}", s.handleGetScore)
	})
	r.Route("/game", func(r chi.Router) {
		r.Get("/leaderboard", s.handleGlobalLeaderboard)
		r.Route("/{game}", func(r chi.Router) {
			r.Get("/score", s.handleListScores)
			r.Post("/score", s.handleRecordScore)
			r.With(s.Auth.Require).Post("/score/{id}/comment", s.handleAddComment)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/user/{userId}/scores", s.handleUserScores)
		})
	})
	r.Get("/user/{id}/stats", s.handleUserStats)
	r.Get("/game-types", func(w http.ResponseWriter, r *http.Request) {
		ok(w, "", s.cat.Games())
	})
	r.Get("/game-types/{code}", func(w http.ResponseWriter, r *http.Request) {
		g, err := s.cat.Game(chi.URLParam(r, "code"))
		if err != nil {
			s.failErr(w, r, err)
			return
		}
		ok(w, "", g)
	})
}

// limitParam reads ?limit=, falling back to def. Values are capped at 100.
func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 100)
}

// gameParam is the {game} path segment, or ?game= on the flat routes.
func gameParam(r *http.Request) string {
	if g := chi.URLParam(r, "game"); g != "" {
		return g
	}
	return r.URL.Query().Get("game")
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	game, limit := gameParam(r), limitParam(r, 50)
	var (
		list []score.Score
		err  error
	)
	if owner := r.URL.Query().Get("owner"); owner != "" {
		list, err = s.Scores.ListByUser(r.Context(), owner, game, limit)
	} else {
		list, err = s.Scores.List(r.Context(), game, limit)
	}
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", list)
}

type recordReq struct {
	Value    int            `json:"value"`
	Text     string         `json:"text"`
	Owner    string         `json:"owner"`
	Game     string         `json:"game"`
	Metadata map[string]any `json:"metadata"`
}

// handleRecordScore stores a score. A logged-in caller always records as
// themselves; otherwise the body's owner (or the anonymous cookie) is used.
func (s *Server) handleRecordScore(w http.ResponseWriter, r *http.Request) {
	var req recordReq
	if err := decode(r, &req); err != nil {
		s.failErr(w, r, err)
		return
	}
	if g := chi.URLParam(r, "game"); g != "" {
		req.Game = g
	}
	owner := req.Owner
	if me, ok := auth.FromContext(r.Context()); ok {
		owner = me.ID
	} else if owner == "" {
		owner = s.Auth.EnsureAnonID(w, r)
	}
	sc := &score.Score{Owner: owner, Game: req.Game, Value: req.Value, Text: req.Text, Metadata: req.Metadata}
	if err := s.Recorder.Record(r.Context(), sc); err != nil {
		s.failErr(w, r, err)
		return
	}
	created(w, "Score recorded", sc)
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	sc, err := s.Scores.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", sc)
}

type commentReq struct {
	ScoreID string `json:"scoreId"`
	Text    string `json:"text"`
}

// handleAddComment serves both comment routes. On the per-game route the
// score must belong to that game.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentReq
	if err := decode(r, &req); err != nil {
		s.failErr(w, r, err)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ScoreID = id
	}
	if game := chi.URLParam(r, "game"); game != "" {
		sc, err := s.Scores.Get(r.Context(), req.ScoreID)
		if err == nil && sc.Game != game {
			err = score.ErrNotFound
		}
		if err != nil {
			s.failErr(w, r, err)
			return
		}
	}
	me, _ := auth.FromContext(r.Context())
	c, err := s.Scores.AddComment(r.Context(), req.ScoreID, me.ID, req.Text)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	c.Username = me.Username
	created(w, "Comment added", c)
}

// leaderboardRes is the body of GET /game/{game}/leaderboard.
type leaderboardRes struct {
	Game        string           `json:"gameCode"`
	TimeFrame   daily.TimeFrame  `json:"timeFrame"`
	Leaderboard []score.Entry    `json:"leaderboard"`
	Stats       score.Stats      `json:"stats"`
	GameInfo    catalog.GameType `json:"gameInfo"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	info, err := s.cat.Game(game)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	tf, err := daily.ParseTimeFrame(r.URL.Query().Get("timeFrame"))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	since, _ := tf.Since(s.Clock.Now())
	rows, err := s.Scores.Leaderboard(r.Context(), game, since, limitParam(r, 10))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	stats, err := s.Scores.GameStats(r.Context(), game, since)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", leaderboardRes{Game: game, TimeFrame: tf, Leaderboard: rows, Stats: stats, GameInfo: info})
}

func (s *Server) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Scores.GlobalLeaderboard(r.Context(), limitParam(r, 10))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", rows)
}

func (s *Server) handleUserScores(w http.ResponseWriter, r *http.Request) {
	list, err := s.Scores.ListByUser(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "game"), limitParam(r, 50))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", list)
}

// userStatsRes adds the account name when the id belongs to a user.
type userStatsRes struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	score.UserStats
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.Scores.UserStats(r.Context(), id)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	res := userStatsRes{UserID: id, UserStats: st}
	if u, err := s.Auth.Users.ByID(r.Context(), id); err == nil {
		res.Username = u.Username
	}
	ok(w, "", res)
}
