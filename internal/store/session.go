// internal/store/session.go
//
// Session wraps a playable game with its ownership metadata.
// Game adapts the two kinds of play the server drives to one surface:
//   - round engines (every round-based mini-game)
//   - pong matches (frame driven)

package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/gamecentr/internal/games/pong"
	"github.com/robalobadob/gamecentr/internal/round"
)

// Game is the surface the HTTP layer drives.
type Game interface {
	Start() error
	// Input feeds one key, click or answer. The result is game specific.
	Input(key string) (any, error)
	Restart()
	Close()
	// View is the JSON-ready state.
	View() any
	// Subscribe streams views after every change until cancel is called.
	Subscribe() (<-chan any, func())
}

// Session is one live game.
type Session struct {
	ID        string    `json:"id"`
	Game      string    `json:"game"`
	Owner     string    `json:"owner"`
	Daily     string    `json:"daily,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Play      Game      `json:"-"`

	mu       sync.Mutex
	lastSeen time.Time
}

// NewSession assigns a fresh ID.
func NewSession(game, owner string, play Game, now time.Time) *Session {
	return &Session{ID: uuid.NewString(), Game: game, Owner: owner, Play: play, CreatedAt: now, lastSeen: now}
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// LastSeen is the last time the session was saved or looked up.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Engine adapts a round engine.
type Engine struct{ *round.Engine }

func (e Engine) Input(key string) (any, error) { return e.Engine.Input(key) }
func (e Engine) View() any                     { return e.Snapshot() }
func (e Engine) Subscribe() (<-chan any, func()) {
	return relay(e.Engine.Subscribe())
}

// Pong adapts a pong match.
type Pong struct{ *pong.Match }

func (p Pong) Input(key string) (any, error) {
	if err := p.Key(key); err != nil {
		return nil, err
	}
	return p.Snapshot(), nil
}
func (p Pong) View() any { return p.Snapshot() }
func (p Pong) Subscribe() (<-chan any, func()) {
	return relay(p.Match.Subscribe())
}

// relay forwards a typed snapshot stream as a stream of any.
func relay[T any](in <-chan T, cancel func()) (<-chan any, func()) {
	out := make(chan any, 1)
	go func() {
		defer close(out)
		for v := range in {
			select {
			case <-out:
			default:
			}
			out <- v
		}
	}()
	return out, cancel
}
