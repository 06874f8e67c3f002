// internal/games/registry.go
//
// Registry of round-based games that run on the round engine.
// Each game code maps to a constructor returning its round.Rules.
//
// Pong is not listed here: it is a per-frame simulation (see games/pong).

package games

import (
	"errors"
	"sort"

	"github.com/robalobadob/gamecentr/internal/round"
)

// Game codes, shared with the scoring catalog.
const (
	PatternRepeater = "patternrepeater"
	SimonSays       = "simonsays"
	ColorGuess      = "colorguess"
	QuickMath       = "quickmath"
	Hangman         = "hangman"
	Guess           = "guess"
	MemoryMatch     = "memorymatch"
	WhackAMole      = "whackamole"
	Pong            = "pong"
)

var ErrUnknownGame = errors.New("unknown game")

// Options carry per-session inputs some rules need.
type Options struct {
	Words []string // hangman word list; defaults to the embedded one
}

// Factory builds fresh rules for one session.
type Factory func(Options) round.Rules

var registry = map[string]Factory{
	PatternRepeater: func(Options) round.Rules { return NewPatternRepeater() },
	SimonSays:       func(Options) round.Rules { return NewSimonSays() },
	ColorGuess:      func(Options) round.Rules { return NewColorGuess() },
	QuickMath:       func(Options) round.Rules { return NewQuickMath() },
	Hangman:         func(o Options) round.Rules { return NewHangman(o.Words) },
	Guess:           func(Options) round.Rules { return NewGuess() },
	MemoryMatch:     func(Options) round.Rules { return NewMemoryMatch() },
	WhackAMole:      func(Options) round.Rules { return NewWhackAMole() },
}

// New returns the rules for code.
func New(code string, opts Options) (round.Rules, error) {
	f, ok := registry[code]
	if !ok {
		return nil, ErrUnknownGame
	}
	return f(opts), nil
}

// Known reports whether code is a round-based game.
func Known(code string) bool {
	_, ok := registry[code]
	return ok
}

// Codes lists every registered game code, sorted.
func Codes() []string {
	out := make([]string, 0, len(registry))
	for c := range registry {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
