package pong

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/robalobadob/gamecentr/internal/round"
)

type recorder struct {
	mu   sync.Mutex
	subs []round.Submission
}

func (r *recorder) Submit(_ context.Context, s round.Submission) (round.SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	return round.SubmitResult{Success: true}, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestMatchSubmitsOnceWhenRallyEnds(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &recorder{}
	m := NewMatch(WithClock(fc), WithOwner("u1"), WithSubmitter(rec))
	m.world.Ball = Ball{X: 590, Y: 300, VX: 15, VY: 1}
	m.world.Right = 0

	if err := m.Key("w"); !errors.Is(err, round.ErrNotAccepting) {
		t.Fatalf("expected ErrNotAccepting before start, got %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	fc.Advance(Frame)
	waitFor(t, func() bool { return m.Snapshot().State == StateOver })
	waitFor(t, func() bool { return rec.count() == 1 })

	fc.Advance(10 * Frame)
	time.Sleep(5 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("expected one submission, got %d", rec.count())
	}
	rec.mu.Lock()
	s := rec.subs[0]
	rec.mu.Unlock()
	if s.Game != Code || s.Owner != "u1" || s.Text != "Bounces: 0" {
		t.Fatalf("unexpected submission %+v", s)
	}
	if err := m.Key("s"); !errors.Is(err, round.ErrFinished) {
		t.Fatalf("expected ErrFinished, got %v", err)
	}
}

func TestMatchKeysAndRestart(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewMatch(WithClock(fc))
	_ = m.Start()
	if err := m.Key("ArrowDown"); err != nil {
		t.Fatal(err)
	}
	if err := m.Key("w"); err != nil {
		t.Fatal(err)
	}
	if err := m.Key("x"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	v := m.Snapshot()
	if v.World.Right != startPaddle+PaddleStep || v.World.Left != startPaddle-PaddleStep {
		t.Fatalf("paddles did not move: %+v", v.World)
	}

	fc.Advance(Frame)
	waitFor(t, func() bool { return m.Snapshot().World.Ball.X != Width/2 })

	m.Restart()
	fc.Advance(5 * Frame)
	time.Sleep(5 * time.Millisecond)
	v = m.Snapshot()
	if v.State != StateIdle || v.World != NewWorld() {
		t.Fatalf("restart did not reset: %+v", v)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start after restart: %v", err)
	}
	if m.Snapshot().Attempt != 2 {
		t.Fatal("expected second attempt")
	}
	m.Close()
}

func TestMatchFinishHookGetsSummary(t *testing.T) {
	fc := clockwork.NewFakeClock()
	got := make(chan round.Snapshot, 1)
	m := NewMatch(WithClock(fc), WithOwner("u2"), WithFinishHook(func(s round.Snapshot) { got <- s }))
	m.world.Ball = Ball{X: 590, Y: 300, VX: 15, VY: 1}
	m.world.Right = 0
	m.world.Bounces = 4

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	fc.Advance(Frame)
	select {
	case s := <-got:
		if s.Game != Code || s.Owner != "u2" || s.Result == nil || s.Result.Value != 4 {
			t.Fatalf("summary = %+v", s)
		}
		if s.Progress["rallyLength"] != 4 || s.Elapsed(time.Time{}) != Frame {
			t.Fatalf("progress = %v elapsed = %v", s.Progress, s.Elapsed(time.Time{}))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("finish hook not called")
	}
}

type deadlineSubmitter struct{ left chan time.Duration }

func (d deadlineSubmitter) Submit(ctx context.Context, _ round.Submission) (round.SubmitResult, error) {
	dl, _ := ctx.Deadline()
	d.left <- time.Until(dl)
	return round.SubmitResult{Success: true}, nil
}

func TestMatchSubmitTimeout(t *testing.T) {
	fc := clockwork.NewFakeClock()
	sub := deadlineSubmitter{left: make(chan time.Duration, 1)}
	m := NewMatch(WithClock(fc), WithSubmitter(sub), WithSubmitTimeout(250*time.Millisecond))
	m.world.Ball = Ball{X: 590, Y: 300, VX: 15, VY: 1}
	m.world.Right = 0
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	fc.Advance(Frame)

	select {
	case left := <-sub.left:
		if left <= 0 || left > 250*time.Millisecond {
			t.Fatalf("submission deadline in %v, want within 250ms", left)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("score was not submitted")
	}
}
