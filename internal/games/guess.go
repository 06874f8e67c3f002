// internal/games/guess.go
//
// Number guess: find a hidden number between 1 and 99 in ten chances.
// Out-of-range input does not cost a chance; every wrong guess gets a
// higher/lower hint. The score is the run of wins in the session: each
// found number adds one, a lost game resets it to zero.

package games

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robalobadob/gamecentr/internal/round"
)

const guessChances = 10

// HiddenNumber is the number to find.
type HiddenNumber struct {
	N int
}

func (h *HiddenNumber) Steps() int { return 0 }

func (h *HiddenNumber) Public(input []string, _ int) any {
	return struct {
		Guesses []string `json:"guesses"`
		Min     int      `json:"min"`
		Max     int      `json:"max"`
	}{input, 1, 99}
}

// GuessRules implements round.Rules. Rules are per session, so wins
// carries across restarts of the same session.
type GuessRules struct {
	set  round.Settings
	wins int
}

func NewGuess() *GuessRules {
	return &GuessRules{set: round.Settings{
		Game:        Guess,
		MaxRounds:   1,
		MaxMistakes: guessChances,
		OnMiss:      round.MissRetry,
	}}
}

func (g *GuessRules) Settings() round.Settings { return g.set }

func (g *GuessRules) NewChallenge(_ int, _ round.Challenge, rng round.Rand) round.Challenge {
	return &HiddenNumber{N: between(rng, 1, 99)}
}

func (g *GuessRules) Normalize(key string) string { return strings.TrimSpace(key) }

func (g *GuessRules) Check(ch round.Challenge, input []string) round.Verdict {
	h := ch.(*HiddenNumber)
	n, err := strconv.Atoi(input[len(input)-1])
	if err != nil || n <= 0 || n >= 100 {
		return round.Verdict{Outcome: round.Invalid, Message: "Your number is invalid"}
	}
	switch {
	case n > h.N:
		return round.Verdict{Outcome: round.Miss, Message: "Your guess is high"}
	case n < h.N:
		return round.Verdict{Outcome: round.Miss, Message: "Your guess is low"}
	}
	return round.Verdict{Outcome: round.Correct, Message: "Congrats! You found the number."}
}

// Result is the session's run of wins, reset to zero by a loss.
// The engine calls it once per finished attempt.
func (g *GuessRules) Result(ch round.Challenge, s round.Snapshot) round.Result {
	if s.State != round.StateWon {
		g.wins = 0
		return round.Result{Value: 0, Text: "You lost the game"}
	}
	g.wins++
	return round.Result{
		Value: g.wins,
		Text:  fmt.Sprintf("Found %d in %d guesses, %d in a row", ch.(*HiddenNumber).N, s.Mistakes+1, g.wins),
	}
}
