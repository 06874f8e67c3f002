// internal/games/hangman.go
//
// Hangman: guess the letters of a hidden word. Repeated letters are ignored,
// six wrong letters lose. A win is worth 100 points, a loss 0.

package games

import (
	"slices"
	"strings"

	"github.com/robalobadob/gamecentr/internal/round"
	"github.com/robalobadob/gamecentr/internal/words"
)

const hangmanMistakes = 6

// HangmanChallenge holds the hidden word.
type HangmanChallenge struct {
	Word string
}

func (c *HangmanChallenge) Steps() int { return 0 }

// Public masks letters that were not guessed yet.
func (c *HangmanChallenge) Public(input []string, _ int) any {
	var b strings.Builder
	for _, r := range c.Word {
		if slices.Contains(input, string(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	var wrong []string
	for _, l := range input {
		if !strings.Contains(c.Word, l) {
			wrong = append(wrong, l)
		}
	}
	return struct {
		Masked  string   `json:"masked"`
		Guessed []string `json:"guessed"`
		Wrong   []string `json:"wrong"`
		Left    int      `json:"left"`
	}{b.String(), input, wrong, hangmanMistakes - len(wrong)}
}

// HangmanRules implements round.Rules.
type HangmanRules struct {
	set   round.Settings
	words []string
}

// NewHangman uses ws, or the loaded word list when ws is empty.
func NewHangman(ws []string) *HangmanRules {
	if len(ws) == 0 {
		ws = words.List()
	}
	return &HangmanRules{
		set: round.Settings{
			Game:        Hangman,
			MaxRounds:   1,
			MaxMistakes: hangmanMistakes,
			OnMiss:      round.MissRetry,
			Points:      100,
		},
		words: ws,
	}
}

func (g *HangmanRules) Settings() round.Settings { return g.set }

func (g *HangmanRules) NewChallenge(_ int, _ round.Challenge, rng round.Rand) round.Challenge {
	return &HangmanChallenge{Word: words.RandomWord(g.words, rng)}
}

func (g *HangmanRules) Normalize(key string) string { return strings.ToLower(strings.TrimSpace(key)) }

func (g *HangmanRules) Check(ch round.Challenge, input []string) round.Verdict {
	word := ch.(*HangmanChallenge).Word
	l := input[len(input)-1]
	if len(l) != 1 || l[0] < 'a' || l[0] > 'z' {
		return round.Verdict{Outcome: round.Invalid, Message: "Guess a single letter"}
	}
	if slices.Contains(input[:len(input)-1], l) {
		return round.Verdict{Outcome: round.Invalid, Message: "Already guessed " + strings.ToUpper(l)}
	}
	if !strings.Contains(word, l) {
		return round.Verdict{Outcome: round.Miss, Message: "No " + strings.ToUpper(l)}
	}
	for _, r := range word {
		if !slices.Contains(input, string(r)) {
			return round.Verdict{Outcome: round.Pending}
		}
	}
	return round.Verdict{Outcome: round.Correct, Message: "You won!"}
}

func (g *HangmanRules) Result(ch round.Challenge, s round.Snapshot) round.Result {
	if s.State == round.StateWon {
		return round.Result{Value: s.Score, Text: "Hangman won!"}
	}
	text := "Hangman lost"
	if c, ok := ch.(*HangmanChallenge); ok {
		text += ": " + strings.ToUpper(c.Word)
	}
	return round.Result{Value: 0, Text: text}
}
