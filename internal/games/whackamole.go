// internal/games/whackamole.go
//
// Whack-a-mole: a mole pops up in one of 9 holes; hit it before it hides.
// The whole game lasts 30 seconds. Moles stay up a little shorter every
// round. Clicking an empty hole does nothing; a mole that hides unhit
// counts as a miss but never ends the game.

package games

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/gamecentr/internal/round"
)

const holes = 9

// Mole is the hole the mole is in this round.
type Mole struct {
	Hole int
}

func (m *Mole) Steps() int { return 0 }

func (m *Mole) Public(_ []string, _ int) any {
	return struct {
		Holes int `json:"holes"`
		Mole  int `json:"mole"`
	}{holes, m.Hole}
}

// WhackAMoleRules implements round.Rules.
type WhackAMoleRules struct{ set round.Settings }

func NewWhackAMole() *WhackAMoleRules {
	return &WhackAMoleRules{set: round.Settings{
		Game:         WhackAMole,
		OnMiss:       round.MissAdvance,
		AdvanceDelay: 200 * time.Millisecond,
		RoundBudget:  round.Timing{Base: 1200 * time.Millisecond, Step: 20 * time.Millisecond, Floor: 600 * time.Millisecond},
		GameDuration: 30 * time.Second,
	}}
}

func (g *WhackAMoleRules) Settings() round.Settings { return g.set }

// NewChallenge never puts the mole in the same hole twice in a row.
func (g *WhackAMoleRules) NewChallenge(_ int, prev round.Challenge, rng round.Rand) round.Challenge {
	h := rng.Intn(holes)
	if p, ok := prev.(*Mole); ok && p.Hole == h {
		h = (h + 1 + rng.Intn(holes-1)) % holes
	}
	return &Mole{Hole: h}
}

func (g *WhackAMoleRules) Normalize(key string) string { return strings.TrimSpace(key) }

func (g *WhackAMoleRules) Check(ch round.Challenge, input []string) round.Verdict {
	n, err := strconv.Atoi(input[len(input)-1])
	if err != nil || n < 0 || n >= holes {
		return round.Verdict{Outcome: round.Invalid, Message: "No such hole"}
	}
	if n != ch.(*Mole).Hole {
		return round.Verdict{Outcome: round.Invalid, Message: "No mole there"}
	}
	return round.Verdict{Outcome: round.Correct, Message: "Whack!"}
}

func (g *WhackAMoleRules) Result(_ round.Challenge, s round.Snapshot) round.Result {
	return round.Result{Value: s.Score, Text: fmt.Sprintf("Score: %d", s.Score)}
}
