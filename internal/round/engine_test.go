package round

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// --- test doubles -----------------------------------------------------------

type seqChallenge struct{ seq []string }

func (c *seqChallenge) Steps() int { return len(c.seq) }

func (c *seqChallenge) Public(input []string, reveal int) any {
	if reveal >= 0 && reveal < len(c.seq) {
		return c.seq[reveal]
	}
	return len(c.seq)
}

// echoRules expects "a" repeated round times; "b" is wrong; anything else is invalid.
type echoRules struct{ set Settings }

func (r echoRules) Settings() Settings { return r.set }

func (r echoRules) NewChallenge(round int, prev Challenge, rng Rand) Challenge {
	return &seqChallenge{seq: strings.Split(strings.Repeat("a", round), "")}
}

func (r echoRules) Check(ch Challenge, input []string) Verdict {
	seq := ch.(*seqChallenge).seq
	last := input[len(input)-1]
	if last != "a" && last != "b" {
		return Verdict{Outcome: Invalid, Message: "unknown key"}
	}
	if len(input) > len(seq) || last != seq[len(input)-1] {
		return Verdict{Outcome: Miss, Message: "Wrong!"}
	}
	if len(input) == len(seq) {
		return Verdict{Outcome: Correct}
	}
	return Verdict{Outcome: Pending}
}

func (r echoRules) Result(ch Challenge, s Snapshot) Result {
	return Result{Value: s.Score, Text: string(s.State)}
}

func (r echoRules) Normalize(key string) string { return strings.ToLower(strings.TrimSpace(key)) }

type recorder struct {
	mu    sync.Mutex
	subs  []Submission
	err   error
	panic bool
}

func (r *recorder) Submit(ctx context.Context, s Submission) (SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	if r.panic {
		panic("boom")
	}
	return SubmitResult{Success: r.err == nil}, r.err
}

func (r *recorder) all() []Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Submission(nil), r.subs...)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// advance waits until the engine has n pending timers, then moves the fake clock.
func advance(t *testing.T, fc *clockwork.FakeClock, n int, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d timers: %v", n, err)
	}
	fc.Advance(d)
}

func playRound(t *testing.T, e *Engine, round int) {
	t.Helper()
	for i := 0; i < round; i++ {
		if _, err := e.Input("a"); err != nil {
			t.Fatalf("round %d input %d: %v", round, i, err)
		}
	}
}

func newEngine(set Settings, rec *recorder) (*Engine, *clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	e := New(echoRules{set: set}, WithClock(fc), WithOwner("user-1"), WithSubmitter(rec), WithRand(NewRand(1)))
	return e, fc
}

// --- tests -------------------------------------------------------------------

func TestTimingAt(t *testing.T) {
	tm := Timing{Base: 600 * time.Millisecond, Step: 40 * time.Millisecond, Floor: 150 * time.Millisecond}
	cases := []struct {
		round int
		want  time.Duration
	}{
		{0, 600 * time.Millisecond},
		{1, 600 * time.Millisecond},
		{2, 560 * time.Millisecond},
		{10, 240 * time.Millisecond},
		{12, 160 * time.Millisecond},
		{13, 150 * time.Millisecond},
		{20, 150 * time.Millisecond},
	}
	for _, c := range cases {
		if got := tm.At(c.round); got != c.want {
			t.Fatalf("At(%d) = %v, want %v", c.round, got, c.want)
		}
		if tm.At(c.round) != tm.At(c.round) {
			t.Fatalf("At(%d) is not deterministic", c.round)
		}
	}
	if (Timing{}).At(5) != 0 {
		t.Fatal("zero timing should yield zero")
	}
	if !(Timing{}).Zero() {
		t.Fatal("empty timing should report Zero")
	}
}

func TestCorrectEveryRoundWins(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(Settings{Game: "pattern", MaxRounds: 20, OnMiss: MissFails}, rec)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for r := 1; r <= 20; r++ {
		s := e.Snapshot()
		if s.Round != r {
			t.Fatalf("expected round %d, got %d", r, s.Round)
		}
		playRound(t, e, r)
	}
	s := e.Snapshot()
	if s.State != StateWon {
		t.Fatalf("expected won, got %s", s.State)
	}
	if s.Score != 20 || s.Round != 20 || s.Mistakes != 0 {
		t.Fatalf("unexpected final snapshot: %+v", s)
	}
	eventually(t, "submission", func() bool { return len(rec.all()) == 1 })
	sub := rec.all()[0]
	if sub.Value != 20 || sub.Owner != "user-1" || sub.Game != "pattern" || sub.Text != "won" {
		t.Fatalf("unexpected submission: %+v", sub)
	}

	// No further input is accepted and nothing is resubmitted.
	if _, err := e.Input("a"); !errors.Is(err, ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if n := len(rec.all()); n != 1 {
		t.Fatalf("expected exactly one submission, got %d", n)
	}
}

func TestWrongInputAtRoundFiveLoses(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(Settings{Game: "simon", MaxRounds: 20, OnMiss: MissFails}, rec)
	_ = e.Start()
	for r := 1; r <= 4; r++ {
		playRound(t, e, r)
	}
	if _, err := e.Input("a"); err != nil {
		t.Fatalf("prefix input: %v", err)
	}
	v, err := e.Input("b")
	if err != nil {
		t.Fatalf("wrong input should be accepted as a miss: %v", err)
	}
	if v.Outcome != Miss {
		t.Fatalf("expected miss, got %s", v.Outcome)
	}
	s := e.Snapshot()
	if s.State != StateLost || s.Round != 5 || s.Score != 4 || s.Mistakes != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	for _, k := range []string{"a", "b", "zz"} {
		if _, err := e.Input(k); !errors.Is(err, ErrFinished) {
			t.Fatalf("expected ErrFinished for %q, got %v", k, err)
		}
	}
	after := e.Snapshot()
	if after.Round != 5 || after.Score != 4 || after.Mistakes != 1 {
		t.Fatalf("terminal state was mutated: %+v", after)
	}
	eventually(t, "submission", func() bool { return len(rec.all()) == 1 })
}

func TestInvalidInputHasNoSideEffects(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(Settings{Game: "g", MaxRounds: 3, OnMiss: MissFails}, rec)
	_ = e.Start()
	before := e.Snapshot()
	v, err := e.Input("x")
	if !errors.Is(err, ErrInvalidInput) || v.Outcome != Invalid {
		t.Fatalf("expected invalid input, got %v %v", v, err)
	}
	s := e.Snapshot()
	if s.Round != before.Round || s.Score != before.Score || s.Mistakes != before.Mistakes || len(s.Input) != 0 {
		t.Fatalf("invalid input mutated state: %+v", s)
	}
	if s.Message != "unknown key" {
		t.Fatalf("expected transient message, got %q", s.Message)
	}
	if s.State != StateAwaitingInput {
		t.Fatalf("expected awaiting input, got %s", s.State)
	}
}

func TestNormalizerIsApplied(t *testing.T) {
	e, _ := newEngine(Settings{Game: "g", MaxRounds: 1}, &recorder{})
	_ = e.Start()
	if _, err := e.Input("  A "); err != nil {
		t.Fatalf("normalized input rejected: %v", err)
	}
	if e.Snapshot().State != StateWon {
		t.Fatal("expected won after normalized correct input")
	}
}

func TestInputBeforeStartIsRejected(t *testing.T) {
	e, _ := newEngine(Settings{Game: "g", MaxRounds: 1}, &recorder{})
	if _, err := e.Input("a"); !errors.Is(err, ErrNotAccepting) {
		t.Fatalf("expected ErrNotAccepting, got %v", err)
	}
	_ = e.Start()
	if err := e.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestPresentationPlayback(t *testing.T) {
	set := Settings{
		Game:         "pattern",
		MaxRounds:    20,
		OnMiss:       MissFails,
		LeadIn:       500 * time.Millisecond,
		AdvanceDelay: 800 * time.Millisecond,
		Present:      Timing{Base: 600 * time.Millisecond, Step: 40 * time.Millisecond, Floor: 150 * time.Millisecond},
		PresentGap:   200 * time.Millisecond,
	}
	e, fc := newEngine(set, &recorder{})
	_ = e.Start()

	s := e.Snapshot()
	if s.State != StatePresenting || s.Highlight != -1 {
		t.Fatalf("expected presenting lead-in, got %+v", s)
	}
	if _, err := e.Input("a"); !errors.Is(err, ErrNotAccepting) {
		t.Fatalf("expected ErrNotAccepting while presenting, got %v", err)
	}

	advance(t, fc, 1, 500*time.Millisecond) // lead-in
	eventually(t, "first reveal", func() bool { return e.Snapshot().Highlight == 0 })
	if v := e.Snapshot().Challenge; v != "a" {
		t.Fatalf("expected revealed element in public view, got %v", v)
	}

	advance(t, fc, 1, 600*time.Millisecond) // element shown
	eventually(t, "blank gap", func() bool { return e.Snapshot().Highlight == -1 })
	if e.Snapshot().State != StatePresenting {
		t.Fatal("gap should still be presenting")
	}

	advance(t, fc, 1, 200*time.Millisecond) // gap
	eventually(t, "awaiting input", func() bool { return e.Snapshot().State == StateAwaitingInput })

	playRound(t, e, 1)
	if s := e.Snapshot(); s.State != StateAdvancing || s.Score != 1 {
		t.Fatalf("expected advancing with score 1, got %+v", s)
	}
	if _, err := e.Input("a"); !errors.Is(err, ErrNotAccepting) {
		t.Fatalf("expected ErrNotAccepting while advancing, got %v", err)
	}

	advance(t, fc, 1, 800*time.Millisecond) // advance delay
	eventually(t, "round 2 presenting", func() bool {
		s := e.Snapshot()
		return s.Round == 2 && s.State == StatePresenting
	})
	if len(e.Snapshot().Input) != 0 {
		t.Fatal("input should be cleared on round start")
	}

	// Round 2 reveals two elements; the second reveal uses the round-scaled speed.
	advance(t, fc, 1, 500*time.Millisecond)
	eventually(t, "reveal 0", func() bool { return e.Snapshot().Highlight == 0 })
	advance(t, fc, 1, 559*time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if e.Snapshot().Highlight != 0 {
		t.Fatal("round 2 element should stay visible for 560ms")
	}
	fc.Advance(time.Millisecond)
	eventually(t, "gap 0", func() bool { return e.Snapshot().Highlight == -1 })
	advance(t, fc, 1, 200*time.Millisecond)
	eventually(t, "reveal 1", func() bool { return e.Snapshot().Highlight == 1 })
	advance(t, fc, 1, 560*time.Millisecond)
	advance(t, fc, 1, 200*time.Millisecond)
	eventually(t, "round 2 awaiting", func() bool { return e.Snapshot().State == StateAwaitingInput })
}

func TestRoundBudgetTimeoutCountsAsMistake(t *testing.T) {
	rec := &recorder{}
	set := Settings{
		Game:        "quickmath",
		MaxRounds:   2,
		OnMiss:      MissAdvance,
		RoundBudget: Timing{Base: 7 * time.Second},
	}
	e, fc := newEngine(set, rec)
	_ = e.Start()
	s := e.Snapshot()
	if s.State != StateAwaitingInput || s.Deadline == nil {
		t.Fatalf("expected awaiting input with a deadline, got %+v", s)
	}
	if !s.Deadline.Equal(fc.Now().Add(7 * time.Second)) {
		t.Fatalf("unexpected deadline %v", s.Deadline)
	}

	advance(t, fc, 1, 7*time.Second)
	eventually(t, "round 2", func() bool { return e.Snapshot().Round == 2 })
	s = e.Snapshot()
	if s.Mistakes != 1 || s.Score != 0 || s.State != StateAwaitingInput {
		t.Fatalf("timeout should count as a mistake and advance: %+v", s)
	}

	// Timing out the last round ends the game.
	advance(t, fc, 1, 7*time.Second)
	eventually(t, "lost", func() bool { return e.Snapshot().State == StateLost })
	if s := e.Snapshot(); s.Mistakes != 2 {
		t.Fatalf("expected 2 mistakes, got %d", s.Mistakes)
	}
	eventually(t, "submission", func() bool { return len(rec.all()) == 1 })
}

func TestAnswerCancelsRoundBudget(t *testing.T) {
	set := Settings{
		Game:        "quickmath",
		MaxRounds:   2,
		OnMiss:      MissAdvance,
		RoundBudget: Timing{Base: 7 * time.Second},
	}
	e, fc := newEngine(set, &recorder{})
	_ = e.Start()
	playRound(t, e, 1)
	playRound(t, e, 2)
	if s := e.Snapshot(); s.State != StateWon || s.Mistakes != 0 {
		t.Fatalf("expected clean win, got %+v", s)
	}
	fc.Advance(time.Minute)
	time.Sleep(5 * time.Millisecond)
	if s := e.Snapshot(); s.Mistakes != 0 || s.State != StateWon {
		t.Fatalf("stale budget fired: %+v", s)
	}
}

func TestRetryUntilMistakeLimit(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(Settings{Game: "hangman", MaxRounds: 1, MaxMistakes: 3, OnMiss: MissRetry}, rec)
	_ = e.Start()
	for i := 1; i <= 2; i++ {
		if _, err := e.Input("b"); err != nil {
			t.Fatalf("miss %d: %v", i, err)
		}
		s := e.Snapshot()
		if s.State != StateAwaitingInput || s.Mistakes != i || s.Round != 1 {
			t.Fatalf("after miss %d: %+v", i, s)
		}
		if len(s.Input) != i {
			t.Fatalf("retry should keep input history, got %v", s.Input)
		}
	}
	// echoRules compares by position, so the history makes the next "b" a miss too.
	if _, err := e.Input("b"); err != nil {
		t.Fatalf("third miss: %v", err)
	}
	if s := e.Snapshot(); s.State != StateLost || s.Mistakes != 3 {
		t.Fatalf("expected lost at mistake limit, got %+v", s)
	}
}

func TestRestartCancelsPendingCallbacks(t *testing.T) {
	set := Settings{
		Game:       "pattern",
		MaxRounds:  5,
		LeadIn:     500 * time.Millisecond,
		Present:    Timing{Base: 600 * time.Millisecond},
		PresentGap: 200 * time.Millisecond,
	}
	e, fc := newEngine(set, &recorder{})
	_ = e.Start()
	advance(t, fc, 1, 500*time.Millisecond)
	eventually(t, "reveal", func() bool { return e.Snapshot().Highlight == 0 })

	e.Restart()
	s := e.Snapshot()
	if s.State != StateIdle || s.Round != 1 || s.Score != 0 || s.Mistakes != 0 || s.Challenge != nil {
		t.Fatalf("restart did not reset: %+v", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 0); err != nil {
		t.Fatalf("pending timers survived restart: %v", err)
	}
	fc.Advance(10 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if s := e.Snapshot(); s.State != StateIdle || s.Highlight != -1 {
		t.Fatalf("stale callback ran after restart: %+v", s)
	}
}

func TestRestartStartsNewSubmissionSession(t *testing.T) {
	rec := &recorder{}
	e, _ := newEngine(Settings{Game: "g", MaxRounds: 1, OnMiss: MissFails}, rec)
	_ = e.Start()
	_, _ = e.Input("b")
	eventually(t, "first submission", func() bool { return len(rec.all()) == 1 })

	e.Restart()
	if err := e.Start(); err != nil {
		t.Fatalf("restart+start: %v", err)
	}
	if s := e.Snapshot(); s.Attempt != 2 || s.Submitted {
		t.Fatalf("expected fresh attempt, got %+v", s)
	}
	_, _ = e.Input("a")
	eventually(t, "second submission", func() bool { return len(rec.all()) == 2 })
	subs := rec.all()
	if subs[0].Text != "lost" || subs[1].Text != "won" {
		t.Fatalf("unexpected submissions: %+v", subs)
	}
}

func TestGameClockEndsSession(t *testing.T) {
	rec := &recorder{}
	set := Settings{
		Game:         "whackamole",
		OnMiss:       MissAdvance,
		RoundBudget:  Timing{Base: 1200 * time.Millisecond, Step: 20 * time.Millisecond, Floor: 600 * time.Millisecond},
		GameDuration: 30 * time.Second,
	}
	e, fc := newEngine(set, rec)
	_ = e.Start()
	playRound(t, e, 1)
	playRound(t, e, 2)
	if s := e.Snapshot(); s.Score != 2 || s.Round != 3 {
		t.Fatalf("unexpected progress: %+v", s)
	}
	// game clock + round budget
	advance(t, fc, 2, 30*time.Second)
	eventually(t, "time up", func() bool { return e.Snapshot().State.Terminal() })
	s := e.Snapshot()
	if s.State != StateWon || s.Score != 2 {
		t.Fatalf("expected won with score 2, got %+v", s)
	}
	eventually(t, "submission", func() bool { return len(rec.all()) == 1 })
	if rec.all()[0].Value != 2 {
		t.Fatalf("unexpected value %d", rec.all()[0].Value)
	}
}

func TestSubmissionFailureDoesNotAffectState(t *testing.T) {
	for name, rec := range map[string]*recorder{
		"error": {err: errors.New("network down")},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			done := make(chan Snapshot, 1)
			fc := clockwork.NewFakeClock()
			e := New(echoRules{set: Settings{Game: "g", MaxRounds: 1, OnMiss: MissFails}},
				WithClock(fc), WithSubmitter(rec),
				WithFinishHook(func(s Snapshot) { done <- s }))
			_ = e.Start()
			_, _ = e.Input("b")
			if name == "error" {
				select {
				case s := <-done:
					if s.State != StateLost || !s.Submitted {
						t.Fatalf("unexpected hook snapshot: %+v", s)
					}
				case <-time.After(2 * time.Second):
					t.Fatal("finish hook not called")
				}
			} else {
				eventually(t, "attempted submission", func() bool { return len(rec.all()) == 1 })
			}
			if s := e.Snapshot(); s.State != StateLost || s.Result == nil {
				t.Fatalf("state changed after failed submission: %+v", s)
			}
		})
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	e, _ := newEngine(Settings{Game: "g", MaxRounds: 2}, &recorder{})
	ch, cancel := e.Subscribe()
	first := <-ch
	if first.State != StateIdle {
		t.Fatalf("expected idle snapshot first, got %s", first.State)
	}
	_ = e.Start()
	got := <-ch
	if got.State != StateAwaitingInput {
		t.Fatalf("expected awaiting input, got %s", got.State)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	e.Close()
	if _, err := e.Input("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestShuffleIsDeterministic(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b := append([]int(nil), a...)
	Shuffle(NewRand(42), len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
	Shuffle(NewRand(42), len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", a, b)
		}
	}
}

func TestVerdictJSONRoundTrip(t *testing.T) {
	for _, o := range []Outcome{Pending, Correct, Miss, Invalid} {
		b, err := json.Marshal(Verdict{Outcome: o, Message: "m"})
		if err != nil {
			t.Fatal(err)
		}
		var got Verdict
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("%s: %v", b, err)
		}
		if got.Outcome != o || got.Message != "m" {
			t.Fatalf("round trip of %s gave %+v", o, got)
		}
	}
	var o Outcome
	if err := json.Unmarshal([]byte(`"sideways"`), &o); err == nil {
		t.Fatal("expected error for unknown outcome")
	}
}
