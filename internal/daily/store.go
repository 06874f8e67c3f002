// internal/daily/store.go
//
// Persistence for daily challenge plays: one counted attempt per user, game
// and date, plus the per-day leaderboard (highest value, then fastest).
// An attempt is reserved when the session starts, so closing a session and
// starting over still finds the day taken.

package daily

import (
	"context"
	"database/sql"
)

// Result is one finished daily attempt.
type Result struct {
	UserID    string `json:"userId"`
	Game      string `json:"game"`
	Date      string `json:"date"`
	Value     int    `json:"value"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the user started or finished game on date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, game, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND game=? AND date=?",
		userID, game, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// Reserve claims the day's attempt for the user. It reports false when the
// attempt was already taken, finished or not.
func (s *Store) Reserve(ctx context.Context, userID, game, date string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, game, date, value, elapsed_ms, finished)
		 VALUES(?,?,?,0,0,0)`, userID, game, date,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Release gives back a reservation whose session never started.
func (s *Store) Release(ctx context.Context, userID, game, date string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM daily_results WHERE user_id=? AND game=? AND date=? AND finished=0",
		userID, game, date,
	)
	return err
}

// InsertResult fills in a reserved attempt, or inserts one. The first
// finished result per (user, game, date) is kept.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_results(user_id, game, date, value, elapsed_ms, finished)
		 VALUES(?,?,?,?,?,1)
		 ON CONFLICT(user_id, game, date) DO UPDATE
		 SET value=excluded.value, elapsed_ms=excluded.elapsed_ms, finished=1
		 WHERE daily_results.finished=0`,
		r.UserID, r.Game, r.Date, r.Value, r.ElapsedMs,
	)
	return err
}

// LBRow is one daily leaderboard entry.
type LBRow struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	Value     int    `json:"value"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard ranks a day's results for game. Default limit is 20.
func (s *Store) Leaderboard(ctx context.Context, game, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.user_id, COALESCE(u.username, ''), d.value, d.elapsed_ms
		 FROM daily_results d LEFT JOIN users u ON u.id = d.user_id
		 WHERE d.game=? AND d.date=? AND d.finished=1
		 ORDER BY d.value DESC, d.elapsed_ms ASC, d.created_at ASC
		 LIMIT ?`, game, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		r := LBRow{Rank: len(out) + 1}
		if err := rows.Scan(&r.UserID, &r.Username, &r.Value, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Claim moves an anonymous player's results to a user. Days the user
// already played keep the user's own result.
func (s *Store) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE OR IGNORE daily_results SET user_id=? WHERE user_id=?`, to, from)
	return err
}
