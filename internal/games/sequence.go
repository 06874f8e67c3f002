// internal/games/sequence.go
//
// Sequence-memory games: the engine plays back a growing sequence, the
// player repeats it element by element.
//   - patternrepeater: arrow keys, reveal speeds up every round, 20 rounds.
//   - simonsays: four colors at a fixed speed, value reported is the round reached.

package games

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robalobadob/gamecentr/internal/round"
)

var (
	arrows = []string{"up", "down", "left", "right"}
	colors = []string{"red", "green", "blue", "yellow"}
)

// SequenceChallenge is the sequence for one round.
type SequenceChallenge struct {
	Seq []string
}

func (c *SequenceChallenge) Steps() int { return len(c.Seq) }

// Public shows only the element being revealed, never the full sequence.
func (c *SequenceChallenge) Public(input []string, reveal int) any {
	view := struct {
		Length  int    `json:"length"`
		Entered int    `json:"entered"`
		Showing string `json:"showing,omitempty"`
	}{Length: len(c.Seq), Entered: len(input)}
	if reveal >= 0 && reveal < len(c.Seq) {
		view.Showing = c.Seq[reveal]
	}
	return view
}

// Sequence implements round.Rules for sequence-repeat games.
type Sequence struct {
	set     round.Settings
	symbols []string
	aliases map[string]string
	result  func(s round.Snapshot) round.Result
}

// NewPatternRepeater: arrows, 600ms reveal shrinking by 40ms per round.
func NewPatternRepeater() *Sequence {
	return &Sequence{
		set: round.Settings{
			Game:         PatternRepeater,
			MaxRounds:    20,
			OnMiss:       round.MissFails,
			LeadIn:       500 * time.Millisecond,
			AdvanceDelay: 1400 * time.Millisecond,
			Present:      round.Timing{Base: 600 * time.Millisecond, Step: 40 * time.Millisecond, Floor: 150 * time.Millisecond},
			PresentGap:   200 * time.Millisecond,
		},
		symbols: arrows,
		aliases: map[string]string{
			"arrowup": "up", "arrowdown": "down", "arrowleft": "left", "arrowright": "right",
			"↑": "up", "↓": "down", "←": "left", "→": "right",
		},
		result: func(s round.Snapshot) round.Result {
			text := "Game Over"
			if s.State == round.StateWon {
				text = "Win!"
			}
			return round.Result{Value: s.Score, Text: text}
		},
	}
}

// NewSimonSays: four colors, fixed 600ms reveal.
func NewSimonSays() *Sequence {
	return &Sequence{
		set: round.Settings{
			Game:         SimonSays,
			MaxRounds:    30,
			OnMiss:       round.MissFails,
			LeadIn:       800 * time.Millisecond,
			AdvanceDelay: 1000 * time.Millisecond,
			Present:      round.Timing{Base: 600 * time.Millisecond, Floor: 600 * time.Millisecond},
			PresentGap:   200 * time.Millisecond,
		},
		symbols: colors,
		result: func(s round.Snapshot) round.Result {
			return round.Result{Value: s.Round, Text: fmt.Sprintf("Round: %d", s.Round)}
		},
	}
}

func (g *Sequence) Settings() round.Settings { return g.set }

// NewChallenge extends the previous sequence by one random symbol.
func (g *Sequence) NewChallenge(r int, prev round.Challenge, rng round.Rand) round.Challenge {
	var seq []string
	if p, ok := prev.(*SequenceChallenge); ok && len(p.Seq) == r-1 {
		seq = slices.Clone(p.Seq)
	}
	for len(seq) < r {
		seq = append(seq, g.symbols[rng.Intn(len(g.symbols))])
	}
	return &SequenceChallenge{Seq: seq}
}

func (g *Sequence) Normalize(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if a, ok := g.aliases[k]; ok {
		return a
	}
	return k
}

func (g *Sequence) Check(ch round.Challenge, input []string) round.Verdict {
	seq := ch.(*SequenceChallenge).Seq
	i := len(input) - 1
	if !slices.Contains(g.symbols, input[i]) {
		return round.Verdict{Outcome: round.Invalid, Message: "Use " + strings.Join(g.symbols, "/")}
	}
	if i >= len(seq) || input[i] != seq[i] {
		return round.Verdict{Outcome: round.Miss, Message: "Wrong!"}
	}
	if len(input) == len(seq) {
		return round.Verdict{Outcome: round.Correct, Message: "Correct!"}
	}
	return round.Verdict{Outcome: round.Pending}
}

func (g *Sequence) Result(_ round.Challenge, s round.Snapshot) round.Result { return g.result(s) }
