// internal/games/pong/match.go
//
// Match drives a World on a clock ticker (about 60 frames per second) for
// one player session and submits the bounce count once when the rally ends.
//
// Keys: "w"/"s" move the left paddle, "up"/"down" (or ArrowUp/ArrowDown)
// the right one.

package pong

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gamecentr/internal/round"
)

// Game code reported with the score.
const Code = "pong"

// Frame is the simulation tick.
const Frame = 16 * time.Millisecond

var ErrUnknownKey = errors.New("unknown key")

// State of a match.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateOver    State = "over"
)

// View is a read-only copy of the match.
type View struct {
	Game      string `json:"game"`
	Owner     string `json:"owner,omitempty"`
	State     State  `json:"state"`
	World     World  `json:"world"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Attempt   int    `json:"attempt"`
	Submitted bool   `json:"submitted"`
}

// Match is one pong session.
type Match struct {
	mu sync.Mutex

	owner string
	clock clockwork.Clock
	sub   round.Submitter
	done  func(round.Snapshot)
	log   zerolog.Logger

	submitTimeout time.Duration

	world     World
	state     State
	attempt   int
	submitted bool
	startedAt time.Time
	ticker    clockwork.Ticker
	stop      chan struct{}
	closed    bool

	watchers    map[int]chan View
	nextWatcher int
}

// Option configures a Match.
type Option func(*Match)

func WithOwner(owner string) Option { return func(m *Match) { m.owner = owner } }
func WithClock(c clockwork.Clock) Option { return func(m *Match) { m.clock = c } }
func WithSubmitter(s round.Submitter) Option { return func(m *Match) { m.sub = s } }
func WithLogger(l zerolog.Logger) Option { return func(m *Match) { m.log = l } }

// WithSubmitTimeout bounds the score submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(m *Match) {
		if d > 0 {
			m.submitTimeout = d
		}
	}
}

// WithFinishHook runs fn after the score of a finished rally was submitted.
func WithFinishHook(fn func(round.Snapshot)) Option { return func(m *Match) { m.done = fn } }

// NewMatch returns an idle match at the kick-off position.
func NewMatch(opts ...Option) *Match {
	m := &Match{
		clock:         clockwork.NewRealClock(),
		log:           zerolog.Nop(),
		submitTimeout: 10 * time.Second,
		world:         NewWorld(),
		state:         StateIdle,
		watchers:      make(map[int]chan View),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With().Str("game", Code).Str("owner", m.owner).Logger()
	return m
}

// Start kicks off the ball.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return round.ErrClosed
	}
	if m.state != StateIdle {
		return round.ErrAlreadyStarted
	}
	m.attempt++
	m.submitted = false
	m.state = StateRunning
	m.startedAt = m.clock.Now()
	m.ticker = m.clock.NewTicker(Frame)
	m.stop = make(chan struct{})
	go m.loop(m.ticker, m.stop)
	m.notify()
	return nil
}

// Key moves a paddle by one step.
func (m *Match) Key(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return round.ErrClosed
	case m.state == StateOver:
		return round.ErrFinished
	case m.state != StateRunning:
		return round.ErrNotAccepting
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "w":
		m.world.MovePaddle(Left, -PaddleStep)
	case "s":
		m.world.MovePaddle(Left, PaddleStep)
	case "up", "arrowup":
		m.world.MovePaddle(Right, -PaddleStep)
	case "down", "arrowdown":
		m.world.MovePaddle(Right, PaddleStep)
	default:
		return ErrUnknownKey
	}
	m.notify()
	return nil
}

// Restart stops the simulation and resets the field.
func (m *Match) Restart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.halt()
	m.world = NewWorld()
	m.state = StateIdle
	m.submitted = false
	m.notify()
}

// Close stops the simulation and detaches observers.
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.halt()
	for id, ch := range m.watchers {
		close(ch)
		delete(m.watchers, id)
	}
}

// Snapshot returns the current view.
func (m *Match) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view()
}

// Subscribe streams views after every frame; slow readers get the latest one.
func (m *Match) Subscribe() (<-chan View, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan View, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = ch
	ch <- m.view()
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.watchers[id]; ok {
			close(c)
			delete(m.watchers, id)
		}
	}
}

func (m *Match) loop(t clockwork.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
			if !m.tick(stop) {
				return
			}
		}
	}
}

// tick advances one frame; false once the loop should exit.
func (m *Match) tick(stop chan struct{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || stop != m.stop || m.state != StateRunning {
		return false
	}
	if m.world.Step() {
		m.state = StateOver
		m.halt()
		m.finish()
	}
	m.notify()
	return m.state == StateRunning
}

// halt stops the ticker and the loop goroutine (called with m.mu held).
func (m *Match) halt() {
	if m.ticker != nil {
		m.ticker.Stop()
		m.ticker = nil
	}
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *Match) finish() {
	if m.submitted {
		return
	}
	m.submitted = true
	b := m.world.Bounces
	s := round.Submission{
		Value: b,
		Text:  fmt.Sprintf("Bounces: %d", b),
		Owner: m.owner,
		Game:  Code,
	}
	m.log.Info().Int("bounces", b).Msg("pong rally over")
	summary := m.summary(s)
	if m.sub == nil && m.done == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error().Interface("panic", r).Msg("score submission panicked")
			}
		}()
		if m.sub != nil {
			ctx, cancel := context.WithTimeout(context.Background(), m.submitTimeout)
			_, err := m.sub.Submit(ctx, s)
			cancel()
			if err != nil {
				m.log.Warn().Err(err).Msg("score submission failed")
			}
		}
		if m.done != nil {
			m.done(summary)
		}
	}()
}

// summary describes a finished rally in the engine's snapshot shape.
func (m *Match) summary(s round.Submission) round.Snapshot {
	start, end := m.startedAt, m.clock.Now()
	return round.Snapshot{
		Game:       Code,
		Owner:      m.owner,
		State:      round.StateLost,
		Round:      1,
		Score:      s.Value,
		Input:      []string{},
		Highlight:  -1,
		StartedAt:  &start,
		FinishedAt: &end,
		Attempt:    m.attempt,
		Submitted:  true,
		Result:     &round.Result{Value: s.Value, Text: s.Text},
		Progress:   map[string]any{"score": s.Value, "rallyLength": s.Value},
	}
}

func (m *Match) view() View {
	return View{
		Game:      Code,
		Owner:     m.owner,
		State:     m.state,
		World:     m.world,
		Width:     Width,
		Height:    Height,
		Attempt:   m.attempt,
		Submitted: m.submitted,
	}
}

func (m *Match) notify() {
	if len(m.watchers) == 0 {
		return
	}
	v := m.view()
	for _, ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
