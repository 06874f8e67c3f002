// internal/round/engine.go
//
// RoundTimerEngine: drives one single-player, round-based mini-game session.
// Responsibilities:
//   - Own the state machine idle → presenting → awaiting_input → validating →
//     advancing → … → won/lost.
//   - Schedule every delay (reveal steps, round budget, game clock) as a
//     cancellable callback on an injected clock.
//   - Track round, score and mistakes; only validation mutates score/mistakes.
//   - Emit exactly one score submission per terminal transition.
//
// Notes:
//   - All state is guarded by a single mutex; timer callbacks re-enter through
//     the same lock, so the engine behaves as one logical timeline.
//   - A callback only runs if the generation it was scheduled in is still
//     current. Every state transition bumps the generation.

package round

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const defaultSubmitTimeout = 10 * time.Second

// Engine is a RoundTimerEngine instance. Create one per game session.
type Engine struct {
	mu sync.Mutex

	rules         Rules
	set           Settings
	owner         string
	clock         clockwork.Clock
	rng           Rand
	sub           Submitter
	onFinish      func(Snapshot)
	log           zerolog.Logger
	submitTimeout time.Duration

	state      State
	round      int
	score      int
	mistakes   int
	streak     int
	best       int
	input      []string
	challenge  Challenge
	highlight  int
	message    string
	deadline   time.Time
	startedAt  time.Time
	finishedAt time.Time
	attempt    int
	submitted  bool
	result     *Result
	progress   map[string]any

	gen       uint64
	pending   clockwork.Timer
	gameTimer clockwork.Timer
	closed    bool

	watchers    map[int]chan Snapshot
	nextWatcher int
}

// Option configures an Engine.
type Option func(*Engine)

// WithOwner sets the user id reported with the score.
func WithOwner(owner string) Option { return func(e *Engine) { e.owner = owner } }

// WithClock injects the clock used for every scheduled callback.
func WithClock(c clockwork.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithRand injects the random source used for challenge generation.
func WithRand(r Rand) Option { return func(e *Engine) { e.rng = r } }

// WithSubmitter sets where terminal scores are sent.
func WithSubmitter(s Submitter) Option { return func(e *Engine) { e.sub = s } }

// WithFinishHook runs fn (off the engine lock) after the score was submitted.
func WithFinishHook(fn func(Snapshot)) Option { return func(e *Engine) { e.onFinish = fn } }

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithSubmitTimeout bounds each score submission.
func WithSubmitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.submitTimeout = d
		}
	}
}

// New constructs an idle engine for the given rules.
func New(rules Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:         rules,
		set:           rules.Settings(),
		clock:         clockwork.NewRealClock(),
		log:           zerolog.Nop(),
		submitTimeout: defaultSubmitTimeout,
		state:         StateIdle,
		round:         1,
		highlight:     -1,
		watchers:      make(map[int]chan Snapshot),
	}
	if e.set.Points <= 0 {
		e.set.Points = 1
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = NewRand(e.clock.Now().UnixNano())
	}
	e.log = e.log.With().Str("game", e.set.Game).Str("owner", e.owner).Logger()
	return e
}

// Settings returns the effective game settings.
func (e *Engine) Settings() Settings { return e.set }

// Start begins a new attempt from Idle and generates the round 1 challenge.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state != StateIdle {
		return ErrAlreadyStarted
	}
	e.attempt++
	e.submitted = false
	e.result = nil
	e.startedAt = e.clock.Now()
	e.finishedAt = time.Time{}
	if e.set.GameDuration > 0 {
		attempt := e.attempt
		e.gameTimer = e.clock.AfterFunc(e.set.GameDuration, func() { e.timeUp(attempt) })
	}
	e.log.Debug().Int("attempt", e.attempt).Msg("game started")
	e.beginRound(1)
	e.notify()
	return nil
}

// Input feeds one user response (key press, click, typed answer).
// Rejected input never mutates round, score or mistakes.
func (e *Engine) Input(key string) (Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return Verdict{Outcome: Invalid}, ErrClosed
	case e.state.Terminal():
		return Verdict{Outcome: Invalid}, ErrFinished
	case e.state != StateAwaitingInput:
		return Verdict{Outcome: Invalid}, ErrNotAccepting
	}
	if n, ok := e.rules.(Normalizer); ok {
		key = n.Normalize(key)
	}
	candidate := append(slices.Clone(e.input), key)
	v := e.rules.Check(e.challenge, candidate)
	switch v.Outcome {
	case Invalid:
		e.message = v.Message
		e.notify()
		return v, ErrInvalidInput
	case Pending:
		e.input = candidate
		e.message = v.Message
		e.notify()
		return v, nil
	}
	e.input = candidate
	e.validate(v)
	e.notify()
	return v, nil
}

// Restart returns to Idle from any state, cancelling all pending callbacks.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.cancelAll()
	e.gen++
	e.state = StateIdle
	e.round = 1
	e.score = 0
	e.mistakes = 0
	e.streak = 0
	e.best = 0
	e.input = nil
	e.challenge = nil
	e.highlight = -1
	e.message = ""
	e.deadline = time.Time{}
	e.startedAt = time.Time{}
	e.finishedAt = time.Time{}
	e.submitted = false
	e.result = nil
	e.progress = nil
	e.log.Debug().Msg("game restarted")
	e.notify()
}

// Close cancels all timers and detaches observers. The engine is unusable afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.cancelAll()
	e.gen++
	for id, ch := range e.watchers {
		close(ch)
		delete(e.watchers, id)
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Subscribe returns a channel receiving a snapshot after every transition.
// Slow readers only see the most recent snapshot.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextWatcher
	e.nextWatcher++
	e.watchers[id] = ch
	ch <- e.snapshot()
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.watchers[id]; ok {
			close(c)
			delete(e.watchers, id)
		}
	}
}

// ---------------------------------------------------------------------------
// transitions (all called with e.mu held)

// to switches state and invalidates every callback scheduled before.
func (e *Engine) to(s State) {
	e.stopPending()
	e.gen++
	e.state = s
}

func (e *Engine) beginRound(r int) {
	e.round = r
	e.input = nil
	e.challenge = e.rules.NewChallenge(r, e.challenge, e.rng)
	e.present()
}

func (e *Engine) present() {
	if e.challenge.Steps() == 0 || e.set.Present.Zero() {
		e.await()
		return
	}
	e.to(StatePresenting)
	e.highlight = -1
	e.deadline = time.Time{}
	e.schedule(e.set.LeadIn, func() { e.reveal(0) })
}

// reveal highlights element i, blanks it after the gap and moves on.
func (e *Engine) reveal(i int) {
	e.highlight = i
	e.schedule(e.set.Present.At(e.round), func() {
		e.highlight = -1
		e.schedule(e.set.PresentGap, func() {
			if i+1 < e.challenge.Steps() {
				e.reveal(i + 1)
				return
			}
			e.await()
		})
	})
}

func (e *Engine) await() {
	e.to(StateAwaitingInput)
	e.highlight = -1
	e.armBudget()
}

func (e *Engine) armBudget() {
	if e.set.RoundBudget.Zero() {
		e.deadline = time.Time{}
		return
	}
	d := e.set.RoundBudget.At(e.round)
	e.deadline = e.clock.Now().Add(d)
	e.schedule(d, e.timeout)
}

// timeout treats an expired round budget exactly like a wrong answer.
func (e *Engine) timeout() {
	e.message = "Time's up!"
	e.to(StateValidating)
	e.deadline = time.Time{}
	e.miss()
}

func (e *Engine) validate(v Verdict) {
	e.to(StateValidating)
	e.deadline = time.Time{}
	e.message = v.Message
	if v.Outcome == Correct {
		e.score += e.set.Points
		e.streak++
		e.best = max(e.best, e.streak)
		if e.lastRound() {
			e.finish(StateWon)
			return
		}
		e.advance()
		return
	}
	e.miss()
}

func (e *Engine) miss() {
	e.mistakes++
	e.streak = 0
	if e.set.OnMiss == MissFails || (e.set.MaxMistakes > 0 && e.mistakes >= e.set.MaxMistakes) {
		e.finish(StateLost)
		return
	}
	switch e.set.OnMiss {
	case MissAdvance:
		if e.lastRound() {
			e.finish(StateLost)
			return
		}
		e.advance()
	default:
		e.to(StateAwaitingInput)
		e.armBudget()
	}
}

func (e *Engine) advance() {
	e.to(StateAdvancing)
	next := e.round + 1
	e.schedule(e.set.AdvanceDelay, func() { e.beginRound(next) })
}

func (e *Engine) lastRound() bool {
	return e.set.MaxRounds > 0 && e.round >= e.set.MaxRounds
}

// timeUp ends the attempt when the whole-game clock runs out.
func (e *Engine) timeUp(attempt int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || attempt != e.attempt || e.state.Terminal() || e.state == StateIdle {
		return
	}
	e.gameTimer = nil
	e.message = "Time's up!"
	e.finish(StateWon)
	e.notify()
}

// finish enters a terminal state and fires the one score submission.
func (e *Engine) finish(s State) {
	e.to(s)
	e.highlight = -1
	e.deadline = time.Time{}
	e.finishedAt = e.clock.Now()
	if e.gameTimer != nil {
		e.gameTimer.Stop()
		e.gameTimer = nil
	}
	if e.submitted {
		return
	}
	e.submitted = true
	snap := e.snapshot()
	res := e.rules.Result(e.challenge, snap)
	e.result = &res
	snap.Result = &res
	if r, ok := e.rules.(Reporter); ok {
		e.progress = r.Progress(e.challenge, snap)
	}
	e.log.Info().
		Str("state", string(s)).
		Int("round", e.round).
		Int("score", e.score).
		Int("mistakes", e.mistakes).
		Int("value", res.Value).
		Msg("game finished")

	sub := Submission{Value: res.Value, Text: res.Text, Owner: e.owner, Game: e.set.Game}
	go e.submit(sub, e.snapshot())
}

// submit is fire-and-forget: errors are logged, never retried, never fed back.
func (e *Engine) submit(s Submission, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("score submission panicked")
		}
	}()
	if e.sub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.submitTimeout)
		res, err := e.sub.Submit(ctx, s)
		cancel()
		switch {
		case err != nil:
			e.log.Warn().Err(err).Int("value", s.Value).Msg("score submission failed")
		case !res.Success:
			e.log.Warn().Int("value", s.Value).Msg("score submission rejected")
		default:
			e.log.Debug().Int("value", s.Value).Msg("score submitted")
		}
	}
	if e.onFinish != nil {
		e.onFinish(snap)
	}
}

// ---------------------------------------------------------------------------
// scheduling

// schedule runs fn after d unless the state changes first.
// fn runs with e.mu held; observers are notified afterwards.
// A non-positive delay runs fn immediately.
func (e *Engine) schedule(d time.Duration, fn func()) {
	e.stopPending()
	if d <= 0 {
		fn()
		return
	}
	gen := e.gen
	var t clockwork.Timer
	t = e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || gen != e.gen || e.pending != t {
			return
		}
		e.pending = nil
		fn()
		e.notify()
	})
	e.pending = t
}

func (e *Engine) stopPending() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

func (e *Engine) cancelAll() {
	e.stopPending()
	if e.gameTimer != nil {
		e.gameTimer.Stop()
		e.gameTimer = nil
	}
}

// ---------------------------------------------------------------------------
// observers

func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		Game:       e.set.Game,
		Owner:      e.owner,
		State:      e.state,
		Round:      e.round,
		MaxRounds:  e.set.MaxRounds,
		Score:      e.score,
		Mistakes:   e.mistakes,
		Streak:     e.streak,
		BestStreak: e.best,
		Input:      slices.Clone(e.input),
		Highlight:  e.highlight,
		Message:    e.message,
		Attempt:    e.attempt,
		Submitted:  e.submitted,
	}
	if s.Input == nil {
		s.Input = []string{}
	}
	if e.challenge != nil {
		s.Challenge = e.challenge.Public(s.Input, e.highlight)
	}
	if !e.deadline.IsZero() {
		d := e.deadline
		s.Deadline = &d
	}
	if !e.startedAt.IsZero() {
		t := e.startedAt
		s.StartedAt = &t
	}
	if !e.finishedAt.IsZero() {
		t := e.finishedAt
		s.FinishedAt = &t
	}
	if e.result != nil {
		r := *e.result
		s.Result = &r
	}
	if e.progress != nil {
		s.Progress = maps.Clone(e.progress)
	}
	return s
}

// notify pushes the latest snapshot to every observer without blocking.
func (e *Engine) notify() {
	if len(e.watchers) == 0 {
		return
	}
	snap := e.snapshot()
	for _, ch := range e.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
