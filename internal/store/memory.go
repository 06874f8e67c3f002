// internal/store/memory.go
//
// In-memory registry of live game sessions.
//
// Characteristics:
//   - Sessions are keyed by ID in a map guarded by an RWMutex.
//   - Every Get marks the session as seen; Sweep closes sessions idle for
//     longer than a TTL so their timers stop.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("session not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID and marks it as seen.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete closes and removes a session.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes sessions not seen within idle.
	Sweep(idle time.Duration) int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clockwork.Clock
}

// NewMemoryStore constructs a new in-memory Store. A nil clock means the real clock.
func NewMemoryStore(clock clockwork.Clock) Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &memory{sessions: make(map[string]*Session), clock: clock}
}

func (m *memory) Save(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session without id")
	}
	s.touch(m.clock.Now())
	m.mu.Lock()
	old := m.sessions[s.ID]
	m.sessions[s.ID] = s
	m.mu.Unlock()
	if old != nil && old != s {
		old.Play.Close()
	}
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.clock.Now())
	return s, nil
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Play.Close()
	return nil
}

func (m *memory) Sweep(idle time.Duration) int {
	cutoff := m.clock.Now().Add(-idle)
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.Play.Close()
	}
	return len(stale)
}

// RunJanitor sweeps st every interval until ctx is done.
func RunJanitor(ctx context.Context, st Store, clock clockwork.Clock, every, idle time.Duration) {
	t := clock.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if n := st.Sweep(idle); n > 0 {
				log.Info().Int("closed", n).Msg("swept idle sessions")
			}
		}
	}
}
