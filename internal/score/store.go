// internal/score/store.go
//
// SQLite persistence for finished-game scores.
// Responsibilities:
//   - Insert scores with optional metadata (stored as JSON text).
//   - Fetch a score with its comments; list scores per game or per owner.
//   - Comments on scores.

package score

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/robalobadob/gamecentr/internal/db"
)

var (
	ErrNotFound     = errors.New("score not found")
	ErrEmptyComment = errors.New("comment text is required")
)

// Score is one submitted result.
type Score struct {
	ID        string         `json:"id"`
	Owner     string         `json:"owner"`
	Username  string         `json:"username,omitempty"`
	Game      string         `json:"game"`
	Value     int            `json:"value"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Comments  []Comment      `json:"comments"`
}

// Comment is a remark left on a score.
type Comment struct {
	ID        string    `json:"id"`
	ScoreID   string    `json:"scoreId"`
	Author    string    `json:"author"`
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store reads and writes the scores and comments tables.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewStore wraps db. A nil clock means the real clock.
func NewStore(db *sql.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, clock: clock}
}

// Insert assigns an ID and timestamp to sc and stores it.
func (s *Store) Insert(ctx context.Context, sc *Score) error {
	var meta sql.NullString
	if len(sc.Metadata) > 0 {
		b, err := json.Marshal(sc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	sc.ID = uuid.NewString()
	sc.CreatedAt = s.clock.Now().UTC()
	if sc.Comments == nil {
		sc.Comments = []Comment{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (id, owner, game, value, text, metadata, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		sc.ID, sc.Owner, sc.Game, sc.Value, sc.Text, meta, db.FormatTime(sc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

const scoreCols = `s.id, s.owner, COALESCE(u.username, ''), s.game, s.value, s.text,
	COALESCE(s.metadata, ''), s.created_at`

type scanner interface{ Scan(dest ...any) error }

func scanScore(row scanner) (Score, error) {
	var sc Score
	var meta, created string
	if err := row.Scan(&sc.ID, &sc.Owner, &sc.Username, &sc.Game, &sc.Value, &sc.Text, &meta, &created); err != nil {
		return Score{}, err
	}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &sc.Metadata); err != nil {
			return Score{}, fmt.Errorf("decode metadata of %s: %w", sc.ID, err)
		}
	}
	sc.CreatedAt = db.ParseTime(created)
	sc.Comments = []Comment{}
	return sc, nil
}

// Get loads one score and its comments, oldest comment first.
func (s *Store) Get(ctx context.Context, id string) (*Score, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreCols+` FROM scores s LEFT JOIN users u ON u.id = s.owner WHERE s.id=?`, id)
	sc, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sc.Comments, err = s.comments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// List returns the newest scores, optionally restricted to one game.
func (s *Store) List(ctx context.Context, game string, limit int) ([]Score, error) {
	return s.query(ctx, "", game, limit)
}

// ListByUser returns an owner's newest scores, optionally for one game.
func (s *Store) ListByUser(ctx context.Context, owner, game string, limit int) ([]Score, error) {
	if owner == "" {
		return []Score{}, nil
	}
	return s.query(ctx, owner, game, limit)
}

func (s *Store) query(ctx context.Context, owner, game string, limit int) ([]Score, error) {
	if limit <= 0 {
		limit = 50
	}
	var where []string
	var args []any
	if owner != "" {
		where = append(where, "s.owner=?")
		args = append(args, owner)
	}
	if game != "" {
		where = append(where, "s.game=?")
		args = append(args, game)
	}
	q := `SELECT ` + scoreCols + ` FROM scores s LEFT JOIN users u ON u.id = s.owner`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY s.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Score{}
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// AddComment attaches a comment to an existing score.
func (s *Store) AddComment(ctx context.Context, scoreID, author, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM scores WHERE id=?`, scoreID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c := &Comment{
		ID:        uuid.NewString(),
		ScoreID:   scoreID,
		Author:    author,
		Text:      text,
		CreatedAt: s.clock.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, score_id, author, text, created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.ScoreID, c.Author, c.Text, db.FormatTime(c.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *Store) comments(ctx context.Context, scoreID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.score_id, c.author, COALESCE(u.username, ''), c.text, c.created_at
		 FROM comments c LEFT JOIN users u ON u.id = c.author
		 WHERE c.score_id=? ORDER BY c.created_at ASC`, scoreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Comment{}
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.ScoreID, &c.Author, &c.Username, &c.Text, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = db.ParseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Claim moves every score of an anonymous owner to a user account.
func (s *Store) Claim(ctx context.Context, from, to string) (int64, error) {
	if from == "" || to == "" || from == to {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `UPDATE scores SET owner=? WHERE owner=?`, to, from)
	if err != nil {
		return 0, fmt.Errorf("claim scores: %w", err)
	}
	return res.RowsAffected()
}
