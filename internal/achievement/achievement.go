// internal/achievement/achievement.go
//
// Achievement checks on top of the catalog and the store.
// Responsibilities:
//   - Build a progress map for a finished game (engine snapshot + counters).
//   - Award every achievement whose conditions hold and is not yet held.
//   - List achievements with per-user unlock state.

package achievement

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gamecentr/internal/catalog"
	"github.com/robalobadob/gamecentr/internal/daily"
	"github.com/robalobadob/gamecentr/internal/round"
)

var ErrUnknownGame = errors.New("unknown game")

// ScoreCounter is the part of the score store used for progress counters.
type ScoreCounter interface {
	PlayCount(ctx context.Context, owner, game string) (int, error)
	WinCount(ctx context.Context, owner, game string, min int) (int, error)
	GamesPlayedSince(ctx context.Context, owner string, t time.Time) (int, error)
}

// StreakSource reports a user's current run of won games.
type StreakSource interface {
	WinStreak(ctx context.Context, userID string) (int, error)
}

// Status is an achievement with the user's unlock state.
type Status struct {
	catalog.Achievement
	GameName   string     `json:"gameName"`
	IsUnlocked bool       `json:"isUnlocked"`
	AwardedAt  *time.Time `json:"awardedAt,omitempty"`
}

type Service struct {
	cat     *catalog.Catalog
	store   *Store
	scores  ScoreCounter
	streaks StreakSource
	clock   clockwork.Clock
	log     zerolog.Logger
}

// NewService wires the catalog and store. scores and streaks may be nil;
// without scores the count-based keys (playCount, winCount,
// gamesPlayedToday) are left out of the progress map.
func NewService(cat *catalog.Catalog, st *Store, scores ScoreCounter, streaks StreakSource, clock clockwork.Clock, l zerolog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{cat: cat, store: st, scores: scores, streaks: streaks, clock: clock, log: l}
}

// Catalog exposes the loaded catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.cat }

// Check awards the achievements of game (and the global ones) that progress
// satisfies and the user does not hold yet. Only new unlocks are returned.
func (s *Service) Check(ctx context.Context, userID, game string, progress map[string]any) ([]Status, error) {
	if !s.cat.HasGame(game) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	held, err := s.store.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := maps.Clone(progress)
	if p == nil {
		p = map[string]any{}
	}
	_, explicitCount := p["achievementCount"]

	out := []Status{}
	// A second pass lets count-based global achievements see this call's unlocks.
	for pass := 0; pass < 2; pass++ {
		if !explicitCount {
			p["achievementCount"] = len(held)
		}
		awarded := false
		for _, a := range s.cat.Unlocked(game, p) {
			if _, ok := held[a.Code]; ok {
				continue
			}
			ok, at, err := s.store.Award(ctx, userID, a.Code, game)
			if err != nil {
				return out, err
			}
			held[a.Code] = at
			if !ok {
				continue
			}
			awarded = true
			s.log.Info().Str("user", userID).Str("achievement", a.Code).Msg("achievement unlocked")
			out = append(out, s.status(a, &at))
		}
		if !awarded || explicitCount {
			break
		}
	}
	return out, nil
}

// Award grants one achievement directly. It reports false if already held.
func (s *Service) Award(ctx context.Context, userID, code string) (Status, bool, error) {
	a, err := s.cat.Achievement(code)
	if err != nil {
		return Status{}, false, err
	}
	ok, at, err := s.store.Award(ctx, userID, a.Code, a.Game)
	if err != nil {
		return Status{}, false, err
	}
	if !ok {
		held, err := s.store.Unlocked(ctx, userID)
		if err != nil {
			return Status{}, false, err
		}
		at = held[code]
	}
	return s.status(a, &at), ok, nil
}

// ForUser lists the achievements of game ("" for all) with unlock state.
// Hidden achievements are left out until unlocked unless showHidden is set.
func (s *Service) ForUser(ctx context.Context, userID, game string, showHidden bool) ([]Status, error) {
	held := map[string]time.Time{}
	if userID != "" {
		var err error
		if held, err = s.store.Unlocked(ctx, userID); err != nil {
			return nil, err
		}
	}
	out := []Status{}
	for _, a := range s.cat.AchievementsFor(game) {
		at, ok := held[a.Code]
		if a.Hidden && !ok && !showHidden {
			continue
		}
		var when *time.Time
		if ok {
			when = &at
		}
		out = append(out, s.status(a, when))
	}
	return out, nil
}

func (s *Service) status(a catalog.Achievement, at *time.Time) Status {
	st := Status{Achievement: a, GameName: "Global", IsUnlocked: at != nil, AwardedAt: at}
	if g, err := s.cat.Game(a.Game); err == nil {
		st.GameName = g.Name
	}
	return st
}

// Progress builds the progress map for a finished game of owner. Keys the
// game reported itself win over the generic ones.
func (s *Service) Progress(ctx context.Context, owner string, snap round.Snapshot) map[string]any {
	now := s.clock.Now()
	p := map[string]any{
		"completed": snap.State == round.StateWon,
		"level":     snap.Round,
		"score":     snap.Score,
		"mistakes":  snap.Mistakes,
		"streak":    snap.BestStreak,
		"timeSpent": snap.Elapsed(now).Seconds(),
		"hour":      now.Hour(),
	}
	if snap.Result != nil {
		p["value"] = snap.Result.Value
	}
	if s.scores != nil {
		if n, err := s.scores.PlayCount(ctx, owner, snap.Game); err == nil {
			p["playCount"] = n
		} else {
			s.log.Warn().Err(err).Msg("play count")
		}
		if g, err := s.cat.Game(snap.Game); err == nil && g.MaxScore != nil {
			if n, err := s.scores.WinCount(ctx, owner, snap.Game, *g.MaxScore); err == nil {
				p["winCount"] = n
			}
		}
		since, _ := daily.Daily.Since(now)
		if n, err := s.scores.GamesPlayedSince(ctx, owner, since); err == nil {
			p["gamesPlayedToday"] = n
		}
	}
	if s.streaks != nil {
		if n, err := s.streaks.WinStreak(ctx, owner); err == nil {
			p["winStreak"] = n
		}
	}
	maps.Copy(p, snap.Progress)
	return p
}

// Finished derives progress from snap and runs Check for its owner.
func (s *Service) Finished(ctx context.Context, owner string, snap round.Snapshot) ([]Status, error) {
	return s.Check(ctx, owner, snap.Game, s.Progress(ctx, owner, snap))
}
