// internal/games/quickmath.go
//
// Quick math: solve an arithmetic equation within 7 seconds per round.
// Wrong answers and timeouts cost a mistake and move on; difficulty rises
// at rounds 5 and 10. Division only appears with integer results.

package games

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/gamecentr/internal/round"
)

// Equation is one quick math challenge.
type Equation struct {
	A, B   int
	Op     string
	Answer int
}

func (e *Equation) Steps() int { return 0 }

func (e *Equation) String() string { return fmt.Sprintf("%d %s %d", e.A, e.Op, e.B) }

func (e *Equation) Public(_ []string, _ int) any {
	return struct {
		A        int    `json:"a"`
		B        int    `json:"b"`
		Op       string `json:"op"`
		Equation string `json:"equation"`
	}{e.A, e.B, e.Op, e.String()}
}

// QuickMathRules implements round.Rules.
type QuickMathRules struct{ set round.Settings }

func NewQuickMath() *QuickMathRules {
	return &QuickMathRules{set: round.Settings{
		Game:         QuickMath,
		MaxRounds:    15,
		OnMiss:       round.MissAdvance,
		AdvanceDelay: 500 * time.Millisecond,
		RoundBudget:  round.Timing{Base: 7 * time.Second, Floor: 7 * time.Second},
	}}
}

func (g *QuickMathRules) Settings() round.Settings { return g.set }

// between returns a random int in [lo, hi].
func between(rng round.Rand, lo, hi int) int { return lo + rng.Intn(hi-lo+1) }

func (g *QuickMathRules) NewChallenge(r int, _ round.Challenge, rng round.Rand) round.Challenge {
	var a, b int
	var op string
	switch {
	case r < 5:
		a, b = between(rng, 1, 10), between(rng, 1, 10)
		op = []string{"+", "-"}[rng.Intn(2)]
	case r < 10:
		a, b = between(rng, 5, 20), between(rng, 1, 15)
		op = []string{"+", "-", "×"}[rng.Intn(3)]
	default:
		op = []string{"+", "-", "×", "÷"}[rng.Intn(4)]
		if op == "÷" {
			b = between(rng, 2, 12)
			a = b * between(rng, 2, 12)
		} else {
			a, b = between(rng, 10, 99), between(rng, 2, 99)
		}
	}
	return &Equation{A: a, B: b, Op: op, Answer: apply(a, b, op)}
}

func apply(a, b int, op string) int {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "×":
		return a * b
	case "÷":
		return a / b
	}
	return 0
}

func (g *QuickMathRules) Normalize(key string) string { return strings.TrimSpace(key) }

func (g *QuickMathRules) Check(ch round.Challenge, input []string) round.Verdict {
	eq := ch.(*Equation)
	n, err := strconv.Atoi(input[len(input)-1])
	if err != nil {
		return round.Verdict{Outcome: round.Invalid, Message: "Enter a whole number"}
	}
	if n != eq.Answer {
		return round.Verdict{Outcome: round.Miss, Message: fmt.Sprintf("Wrong! %s = %d", eq, eq.Answer)}
	}
	return round.Verdict{Outcome: round.Correct, Message: "Correct!"}
}

func (g *QuickMathRules) Result(_ round.Challenge, s round.Snapshot) round.Result {
	return round.Result{Value: s.Score, Text: fmt.Sprintf("Score: %d", s.Score)}
}
