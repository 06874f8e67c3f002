// internal/score/leaderboard.go
//
// Ranked and aggregated views over the scores table.
//   - Leaderboard: best scores of one game inside a time window.
//   - GameStats / UserStats / GlobalLeaderboard: SQL aggregates.
//   - PlayCount / GamesPlayedSince: counters used for achievement progress.

package score

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/gamecentr/internal/db"
)

// Player identifies the owner of a leaderboard row. Anonymous owners have
// no username.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Entry is one leaderboard row.
type Entry struct {
	Rank      int            `json:"rank"`
	ScoreID   string         `json:"scoreId"`
	User      Player         `json:"user"`
	Score     int            `json:"score"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Stats aggregates a set of scores.
type Stats struct {
	TotalPlays   int     `json:"totalPlays"`
	AverageScore float64 `json:"averageScore"`
	HighestScore int     `json:"highestScore"`
	LowestScore  int     `json:"lowestScore"`
}

// GameStat is a user's stats for one game.
type GameStat struct {
	Game string `json:"gameCode"`
	Stats
	LastPlayed time.Time `json:"lastPlayed"`
}

// UserStats is the overall and per-game summary of one user.
type UserStats struct {
	Overall    Stats      `json:"overall"`
	TotalGames int        `json:"totalGames"`
	Games      []GameStat `json:"games"`
}

// GlobalEntry is one row of the cross-game leaderboard.
type GlobalEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	Username    string  `json:"username,omitempty"`
	TotalScore  int     `json:"totalScore"`
	TotalPlays  int     `json:"totalPlays"`
	AvgScore    float64 `json:"avgScore"`
	GamesPlayed int     `json:"gamesPlayed"`
}

// Leaderboard ranks game scores created at or after since (zero = all time),
// highest value first and earlier submissions ahead on ties. Default limit is 10.
func (s *Store) Leaderboard(ctx context.Context, game string, since time.Time, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreCols+` FROM scores s LEFT JOIN users u ON u.id = s.owner
		 WHERE s.game=? AND s.created_at >= ?
		 ORDER BY s.value DESC, s.created_at ASC LIMIT ?`,
		game, sinceArg(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Rank:      len(out) + 1,
			ScoreID:   sc.ID,
			User:      Player{ID: sc.Owner, Username: sc.Username},
			Score:     sc.Value,
			Text:      sc.Text,
			Metadata:  sc.Metadata,
			CreatedAt: sc.CreatedAt,
		})
	}
	return out, rows.Err()
}

// GameStats aggregates one game's scores since the given time.
func (s *Store) GameStats(ctx context.Context, game string, since time.Time) (Stats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(value), 0), COALESCE(MAX(value), 0), COALESCE(MIN(value), 0)
		 FROM scores WHERE game=? AND created_at >= ?`, game, sinceArg(since))
	var st Stats
	err := row.Scan(&st.TotalPlays, &st.AverageScore, &st.HighestScore, &st.LowestScore)
	return st, err
}

// UserStats summarises an owner's scores, most played game first.
func (s *Store) UserStats(ctx context.Context, owner string) (UserStats, error) {
	out := UserStats{Games: []GameStat{}}
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(value), 0), COALESCE(MAX(value), 0), COALESCE(MIN(value), 0)
		 FROM scores WHERE owner=?`, owner)
	o := &out.Overall
	if err := row.Scan(&o.TotalPlays, &o.AverageScore, &o.HighestScore, &o.LowestScore); err != nil {
		return out, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT game, COUNT(*), AVG(value), MAX(value), MIN(value), MAX(created_at)
		 FROM scores WHERE owner=? GROUP BY game ORDER BY COUNT(*) DESC, game ASC`, owner)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var g GameStat
		var last string
		if err := rows.Scan(&g.Game, &g.TotalPlays, &g.AverageScore, &g.HighestScore, &g.LowestScore, &last); err != nil {
			return out, err
		}
		g.LastPlayed = db.ParseTime(last)
		out.Games = append(out.Games, g)
	}
	out.TotalGames = len(out.Games)
	return out, rows.Err()
}

// GlobalLeaderboard sums scores per owner across all games. Default limit is 10.
func (s *Store) GlobalLeaderboard(ctx context.Context, limit int) ([]GlobalEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.owner, COALESCE(MAX(u.username), ''), SUM(s.value), COUNT(*), AVG(s.value), COUNT(DISTINCT s.game)
		 FROM scores s LEFT JOIN users u ON u.id = s.owner
		 GROUP BY s.owner
		 ORDER BY SUM(s.value) DESC, MIN(s.created_at) ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []GlobalEntry{}
	for rows.Next() {
		e := GlobalEntry{Rank: len(out) + 1}
		if err := rows.Scan(&e.UserID, &e.Username, &e.TotalScore, &e.TotalPlays, &e.AvgScore, &e.GamesPlayed); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PlayCount is how many scores owner has for game.
func (s *Store) PlayCount(ctx context.Context, owner, game string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scores WHERE owner=? AND game=?`, owner, game).Scan(&n)
	return n, err
}

// WinCount counts owner's scores for game with value at least min.
func (s *Store) WinCount(ctx context.Context, owner, game string, min int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scores WHERE owner=? AND game=? AND value >= ?`, owner, game, min).Scan(&n)
	return n, err
}

// GamesPlayedSince counts the distinct games owner scored in since t.
func (s *Store) GamesPlayedSince(ctx context.Context, owner string, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT game) FROM scores WHERE owner=? AND created_at >= ?`,
		owner, sinceArg(t)).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func sinceArg(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return db.FormatTime(t)
}
