// internal/achievement/store.go
//
// SQLite persistence for unlocked achievements (user_achievements table).
// Awarding is idempotent per (user, achievement).

package achievement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/robalobadob/gamecentr/internal/db"
)

type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewStore(db *sql.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, clock: clock}
}

// Award records code for user. It reports false when already held.
func (s *Store) Award(ctx context.Context, userID, code, game string) (bool, time.Time, error) {
	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_achievements (user_id, achievement, game, awarded_at) VALUES (?,?,?,?)`,
		userID, code, game, db.FormatTime(now))
	if err != nil {
		return false, time.Time{}, fmt.Errorf("award %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, time.Time{}, err
	}
	if n == 0 {
		return false, time.Time{}, nil
	}
	return true, now, nil
}

// Unlocked maps each achievement code the user holds to its award time.
func (s *Store) Unlocked(ctx context.Context, userID string) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement, awarded_at FROM user_achievements WHERE user_id=?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]time.Time)
	for rows.Next() {
		var code, at string
		if err := rows.Scan(&code, &at); err != nil {
			return nil, err
		}
		out[code] = db.ParseTime(at)
	}
	return out, rows.Err()
}

// Count is how many achievements the user holds.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_achievements WHERE user_id=?`, userID).Scan(&n)
	return n, err
}
