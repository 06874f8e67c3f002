// internal/httpserver/routes_achievement.go
//
// Achievement API routes.
//   - GET  /achievement                 → catalog with the caller's unlock state (?game=&showHidden=)
//   - GET  /achievement/user/{id}       → a user's achievements (?game=&showHidden=)
//   - POST /achievement/award           → {userId, achievementCode}
//   - POST /achievement/check-progress  → {userId, gameCode, progress} → new unlocks

package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/gamecentr/internal/achievement"
	"github.com/robalobadob/gamecentr/internal/auth"
)

func (s *Server) mountAchievements(r chi.Router) {
	r.Route("/achievement", func(r chi.Router) {
		r.Get("/", s.handleAchievements)
		r.Get("/user/{id}", s.handleAchievements)
		r.Post("/award", s.handleAward)
		r.Post("/check-progress", s.handleCheckProgress)
	})
}

// subject is the user named in the path or body, else the logged-in caller.
func subject(r *http.Request, id string) string {
	if id != "" {
		return id
	}
	if me, ok := auth.FromContext(r.Context()); ok {
		return me.ID
	}
	return ""
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	showHidden, _ := strconv.ParseBool(q.Get("showHidden"))
	list, err := s.Achievements.ForUser(r.Context(), subject(r, chi.URLParam(r, "id")), q.Get("game"), showHidden)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	ok(w, "", list)
}

type awardReq struct {
	UserID string `json:"userId"`
	Code   string `json:"achievementCode"`
}

type awardRes struct {
	Achievement  achievement.Status `json:"achievement"`
	NewlyAwarded bool               `json:"newlyAwarded"`
}

func (s *Server) handleAward(w http.ResponseWriter, r *http.Request) {
	var req awardReq
	if err := decode(r, &req); err != nil {
		s.failErr(w, r, err)
		return
	}
	uid := subject(r, req.UserID)
	if uid == "" {
		fail(w, http.StatusBadRequest, "userId is required")
		return
	}
	st, isNew, err := s.Achievements.Award(r.Context(), uid, req.Code)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	msg := "Achievement already unlocked"
	if isNew {
		msg = "Achievement unlocked"
	}
	ok(w, msg, awardRes{Achievement: st, NewlyAwarded: isNew})
}

type checkReq struct {
	UserID   string         `json:"userId"`
	Game     string         `json:"gameCode"`
	Progress map[string]any `json:"progress"`
}

type checkRes struct {
	Unlocked []achievement.Status `json:"unlockedAchievements"`
}

func (s *Server) handleCheckProgress(w http.ResponseWriter, r *http.Request) {
	var req checkReq
	if err := decode(r, &req); err != nil {
		s.failErr(w, r, err)
		return
	}
	uid := subject(r, req.UserID)
	if uid == "" {
		fail(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.Progress == nil {
		req.Progress = map[string]any{}
	}
	unlocked, err := s.Achievements.Check(r.Context(), uid, req.Game, req.Progress)
	if err != nil {
		s.failErr(w, r, err)
		return
	}
	msg := "No new achievements"
	if len(unlocked) > 0 {
		msg = fmt.Sprintf("Unlocked %d achievement(s)", len(unlocked))
	}
	ok(w, msg, checkRes{Unlocked: unlocked})
}
