// internal/httpserver/routes_play.go
//
// HTTP routes that drive live game sessions.
//   - POST   /play/{game}          → start a session (?daily=1 for the daily challenge)
//   - GET    /play/{id}            → session + current view
//   - POST   /play/{id}/input      → feed one key/click/answer; input the game
//                                     rejects answers 200 with an "invalid" verdict
//   - POST   /play/{id}/restart    → new attempt (not allowed in daily mode)
//   - DELETE /play/{id}            → close and forget the session
//   - GET    /play/{id}/ws         → websocket stream of views
//
// Sessions live in the in-memory store. When a game ends the engine submits
// the score, then the finish hook records the daily result, the user's
// counters and any newly unlocked achievements.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/robalobadob/gamecentr/internal/auth"
	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/games"
	"github.com/robalobadob/gamecentr/internal/games/pong"
	"github.com/robalobadob/gamecentr/internal/round"
	"github.com/robalobadob/gamecentr/internal/store"
)

// mountPlay registers the session routes on the /play subrouter.
func (s *Server) mountPlay(r chi.Router) {
	r.Post("/{game}", s.handleStart)
	r.Get("/{id}", s.handleView)
	r.Delete("/{id}", s.handleClose)
	r.Post("/{id}/input", s.handleInput)
	r.Post("/{id}/restart", s.handleRestart)
}

// playRes is returned by every play endpoint.
type playRes struct {
	Session *store.Session `json:"session"`
	View    any            `json:"view"`
	Verdict any            `json:"verdict,omitempty"`
}

// handleStart creates a session for the game and starts the first attempt.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "game")
	if code != pong.Code && !games.Known(code) {
		fail(w, http.StatusNotFound, "Unknown game: "+code)
		return
	}
	owner := s.Auth.Owner(w, r)
	_, registered := auth.FromContext(r.Context())
	now := s.Clock.Now()

	sess := store.NewSession(code, owner, nil, now)
	var rng round.Rand
	if q := r.URL.Query().Get("daily"); q == "1" || q == "true" {
		date := daily.DateKey(now)
		reserved, err := s.Daily.Reserve(r.Context(), owner, code, date)
		if err != nil {
			s.failErr(w, r, err)
			return
		}
		if !reserved {
			fail(w, http.StatusConflict, "Daily challenge already played today")
			return
		}
		sess.Daily = date
		rng = round.NewRand(daily.Seed(now, s.opt.DailySalt, code))
	}

	play, err := s.newGame(sess, rng, registered)
	if err == nil {
		sess.Play = play
		if err = play.Start(); err == nil {
			if err = s.Sessions.Save(r.Context(), sess); err != nil {
				play.Close()
			}
		}
	}
	if err != nil {
		if sess.Daily != "" {
			if rerr := s.Daily.Release(r.Context(), owner, code, sess.Daily); rerr != nil {
				s.Log.Warn().Err(rerr).Str("owner", owner).Msg("release daily attempt")
			}
		}
		s.failErr(w, r, err)
		return
	}
	s.Log.Info().Str("session", sess.ID).Str("game", code).Str("owner", owner).
		Bool("daily", sess.Daily != "").Msg("session started")
	created(w, "", playRes{Session: sess, View: play.View()})
}

// newGame builds the engine (or pong match) behind a session.
func (s *Server) newGame(sess *store.Session, rng round.Rand, registered bool) (store.Game, error) {
	l := s.Log.With().Str("session", sess.ID).Logger()
	hook := s.finishHook(sess, registered)
	if sess.Game == pong.Code {
		return store.Pong{Match: pong.NewMatch(
			pong.WithOwner(sess.Owner),
			pong.WithClock(s.Clock),
			pong.WithSubmitter(s.Submitter),
			pong.WithSubmitTimeout(s.opt.SubmitTimeout),
			pong.WithLogger(l),
			pong.WithFinishHook(hook),
		)}, nil
	}
	rules, err := games.New(sess.Game, games.Options{Words: s.opt.Words})
	if err != nil {
		return nil, err
	}
	opts := []round.Option{
		round.WithOwner(sess.Owner),
		round.WithClock(s.Clock),
		round.WithSubmitter(s.Submitter),
		round.WithSubmitTimeout(s.opt.SubmitTimeout),
		round.WithLogger(l),
		round.WithFinishHook(hook),
	}
	if rng != nil {
		opts = append(opts, round.WithRand(rng))
	}
	return store.Engine{Engine: round.New(rules, opts...)}, nil
}

// finishHook runs after a finished game's score was submitted.
func (s *Server) finishHook(sess *store.Session, registered bool) func(round.Snapshot) {
	return func(snap round.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), s.opt.SubmitTimeout)
		defer cancel()
		l := s.Log.With().Str("session", sess.ID).Str("game", snap.Game).Str("owner", sess.Owner).Logger()

		if sess.Daily != "" {
			res := daily.Result{
				UserID:    sess.Owner,
				Game:      snap.Game,
				Date:      sess.Daily,
				Value:     snap.Score,
				ElapsedMs: snap.Elapsed(s.Clock.Now()).Milliseconds(),
			}
			if snap.Result != nil {
				res.Value = snap.Result.Value
			}
			if err := s.Daily.InsertResult(ctx, res); err != nil {
				l.Warn().Err(err).Msg("insert daily result")
			}
		}
		if !registered {
			return
		}
		if err := s.Auth.Users.RecordGame(ctx, sess.Owner, snap.State == round.StateWon); err != nil {
			l.Warn().Err(err).Msg("record game")
		}
		unlocked, err := s.Achievements.Finished(ctx, sess.Owner, snap)
		if err != nil {
			l.Warn().Err(err).Msg("achievement check")
			return
		}
		for _, a := range unlocked {
			l.Info().Str("achievement", a.Code).Msg("achievement unlocked")
		}
	}
}

// session loads the session named in the URL.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failErr(w, r, err)
		return nil, false
	}
	return sess, true
}

// ownSession loads the session and checks the caller owns it.
func (s *Server) ownSession(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	sess, found := s.session(w, r)
	if !found {
		return nil, false
	}
	if sess.Owner != s.Auth.Owner(w, r) {
		fail(w, http.StatusForbidden, "Not your session")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, found := s.session(w, r)
	if !found {
		return
	}
	ok(w, "", playRes{Session: sess, View: sess.Play.View()})
}

type inputReq struct {
	Key string `json:"key"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputReq
	if err := decode(r, &req); err != nil {
		s.failErr(w, r, err)
		return
	}
	sess, found := s.ownSession(w, r)
	if !found {
		return
	}
	verdict, err := sess.Play.Input(req.Key)
	switch {
	case errors.Is(err, round.ErrInvalidInput):
		// The game saw the input and ignored it; nothing changed.
		ok(w, "", playRes{Session: sess, View: sess.Play.View(), Verdict: verdict})
		return
	case err != nil:
		s.failErr(w, r, err)
		return
	}
	ok(w, "", playRes{Session: sess, View: sess.Play.View(), Verdict: verdict})
}

// handleRestart resets the session and starts a new attempt.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess, found := s.ownSession(w, r)
	if !found {
		return
	}
	if sess.Daily != "" {
		fail(w, http.StatusConflict, "Daily challenge allows one attempt")
		return
	}
	sess.Play.Restart()
	if err := sess.Play.Start(); err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", playRes{Session: sess, View: sess.Play.View()})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sess, found := s.ownSession(w, r)
	if !found {
		return
	}
	if err := s.Sessions.Delete(r.Context(), sess.ID); err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "Session closed", nil)
}

// ------------------------------ live stream --------------------------------

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingEvery    = 50 * time.Second
)

func (s *Server) upgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(s.opt.Origins))
	for _, o := range s.opt.Origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || len(allowed) == 0 || allowed[o]
		},
	}
}

// handleWatch streams the session's views until either side goes away.
// Anyone holding the session id may watch.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Debug().Err(err).Str("session", sess.ID).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	views, cancel := sess.Play.Subscribe()
	defer cancel()

	// Reader: only control frames are expected; a read error means the peer left.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}
	if err := write(sess.Play.View()); err != nil {
		return
	}
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case v, open := <-views:
			if !open {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := write(v); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
