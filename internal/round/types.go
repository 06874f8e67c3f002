// internal/round/types.go
//
// Core type definitions for the round/timer engine.
// Defines:
//   - State: the lifecycle of a single game session.
//   - Verdict/Outcome: how the rules classified the latest input.
//   - Rules/Challenge: the per-game plug-in surface.
//   - Settings/Timing: static parameters, including round-scaled delays.
//   - Submission/Submitter: the score report emitted on a terminal transition.

package round

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	ErrFinished       = errors.New("game finished")
	ErrNotAccepting   = errors.New("not accepting input")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyStarted = errors.New("game already started")
	ErrClosed         = errors.New("engine closed")
)

// State is the engine's position in the round state machine.
type State string

const (
	StateIdle          State = "idle"
	StatePresenting    State = "presenting"
	StateAwaitingInput State = "awaiting_input"
	StateValidating    State = "validating"
	StateAdvancing     State = "advancing"
	StateWon           State = "won"
	StateLost          State = "lost"
)

// Terminal reports whether no further input can change the session.
func (s State) Terminal() bool { return s == StateWon || s == StateLost }

// Outcome classifies an input sequence.
type Outcome int

const (
	// Pending means the input is a valid prefix; keep waiting for more.
	Pending Outcome = iota
	// Correct completes the round successfully.
	Correct
	// Miss is a wrong answer; it costs a mistake.
	Miss
	// Invalid rejects the latest input without any side effect.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Correct:
		return "correct"
	case Miss:
		return "miss"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// MarshalText lets verdicts render as strings in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText parses the names written by MarshalText.
func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*o = Pending
	case "correct":
		*o = Correct
	case "miss":
		*o = Miss
	case "invalid":
		*o = Invalid
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Verdict is what Rules.Check returns for an input sequence.
type Verdict struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
}

// MissPolicy decides what a wrong answer does to the round.
type MissPolicy int

const (
	// MissFails ends the game on the first wrong answer.
	MissFails MissPolicy = iota
	// MissRetry keeps the current round and input history.
	MissRetry
	// MissAdvance moves on to the next round without scoring.
	MissAdvance
)

// Timing is a delay that shrinks linearly with the round number down to a floor.
type Timing struct {
	Base  time.Duration
	Step  time.Duration
	Floor time.Duration
}

// At returns the delay for round r (1-based). A zero Timing yields zero.
func (t Timing) At(r int) time.Duration {
	if r < 1 {
		r = 1
	}
	d := t.Base - time.Duration(r-1)*t.Step
	if d < t.Floor {
		d = t.Floor
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Zero reports whether the timing is unset.
func (t Timing) Zero() bool { return t.Base == 0 && t.Floor == 0 }

// Settings are the static parameters of a game.
type Settings struct {
	Game         string
	MaxRounds    int // 0 = uncapped
	MaxMistakes  int // 0 = unlimited
	OnMiss       MissPolicy
	Points       int // per correct round, defaults to 1
	LeadIn       time.Duration
	AdvanceDelay time.Duration
	Present      Timing
	PresentGap   time.Duration
	RoundBudget  Timing
	GameDuration time.Duration
}

// Challenge is the per-round payload owned by the current round.
type Challenge interface {
	// Steps is how many elements are revealed one at a time while presenting.
	Steps() int
	// Public is the client-safe view; reveal is the element being shown or -1.
	Public(input []string, reveal int) any
}

// Result is the {value, text} pair reported when a game ends.
type Result struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

// Rules plug a concrete game into the engine.
type Rules interface {
	Settings() Settings
	NewChallenge(round int, prev Challenge, rng Rand) Challenge
	Check(ch Challenge, input []string) Verdict
	Result(ch Challenge, s Snapshot) Result
}

// Normalizer is implemented by rules that canonicalise raw keys
// (e.g. "ArrowUp" -> "up") before checking them.
type Normalizer interface {
	Normalize(key string) string
}

// Reporter is implemented by rules that describe a finished game as
// achievement progress (e.g. "distance" for the number guess).
type Reporter interface {
	Progress(ch Challenge, s Snapshot) map[string]any
}

// Rand is the only randomness the engine and rules use.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a seeded pseudo-random source.
func NewRand(seed int64) Rand { return rand.New(rand.NewSource(seed)) }

// Shuffle permutes n elements with rng (Fisher–Yates).
func Shuffle(rng Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, rng.Intn(i+1))
	}
}

// Submission is the score event sent to the Scoring API.
type Submission struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
	Owner string `json:"owner"`
	Game  string `json:"game"`
}

// SubmitResult mirrors the Scoring API envelope.
type SubmitResult struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Submitter delivers a terminal score somewhere.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (SubmitResult, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, s Submission) (SubmitResult, error)

func (f SubmitterFunc) Submit(ctx context.Context, s Submission) (SubmitResult, error) {
	return f(ctx, s)
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Game       string         `json:"game"`
	Owner      string         `json:"owner,omitempty"`
	State      State          `json:"state"`
	Round      int            `json:"round"`
	MaxRounds  int            `json:"maxRounds"`
	Score      int            `json:"score"`
	Mistakes   int            `json:"mistakes"`
	Streak     int            `json:"streak"`
	BestStreak int            `json:"bestStreak"`
	Input      []string       `json:"input"`
	Challenge  any            `json:"challenge,omitempty"`
	Highlight  int            `json:"highlight"`
	Message    string         `json:"message,omitempty"`
	Deadline   *time.Time     `json:"deadline,omitempty"`
	StartedAt  *time.Time     `json:"startedAt,omitempty"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Attempt    int            `json:"attempt"`
	Submitted  bool           `json:"submitted"`
	Result     *Result        `json:"result,omitempty"`
	Progress   map[string]any `json:"progress,omitempty"`
}

// Elapsed is the play time of the current attempt (up to now if still running).
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	if s.FinishedAt != nil {
		end = *s.FinishedAt
	}
	return end.Sub(*s.StartedAt)
}
