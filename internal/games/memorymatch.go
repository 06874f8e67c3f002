// internal/games/memorymatch.go
//
// Memory match: flip cards two at a time to find the 8 pairs.
// Every flipped pair is a move; a mismatched pair counts as a mistake but
// the game goes on. Value is max(1000 - (moves*10 + seconds*5), 0).

package games

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/gamecentr/internal/round"
)

var cardIcons = []string{"🍎", "🍌", "🍇", "🍉", "🍒", "🍋", "🍓", "🥝"}

// Deck is the shuffled card layout.
type Deck struct {
	Cards []string
}

func (d *Deck) Steps() int { return 0 }

// board replays the flips: matched cards, the open card of an unfinished pair
// and the last pair flipped.
func (d *Deck) board(input []string) (matched map[int]bool, open int, last []int, moves int) {
	matched = make(map[int]bool)
	open = -1
	for _, in := range input {
		i, err := strconv.Atoi(in)
		if err != nil {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		moves++
		last = []int{open, i}
		if d.Cards[open] == d.Cards[i] {
			matched[open], matched[i] = true, true
		}
		open = -1
	}
	return matched, open, last, moves
}

// Public shows face-up cards only.
func (d *Deck) Public(input []string, _ int) any {
	matched, open, last, moves := d.board(input)
	faces := make([]string, len(d.Cards))
	for i := range faces {
		if matched[i] || i == open || (open < 0 && slices.Contains(last, i)) {
			faces[i] = d.Cards[i]
		}
	}
	return struct {
		Cards []string `json:"cards"`
		Moves int      `json:"moves"`
		Pairs int      `json:"pairs"`
	}{faces, moves, len(matched) / 2}
}

// MemoryMatchRules implements round.Rules.
type MemoryMatchRules struct{ set round.Settings }

func NewMemoryMatch() *MemoryMatchRules {
	return &MemoryMatchRules{set: round.Settings{
		Game:      MemoryMatch,
		MaxRounds: 1,
		OnMiss:    round.MissRetry,
	}}
}

func (g *MemoryMatchRules) Settings() round.Settings { return g.set }

func (g *MemoryMatchRules) NewChallenge(_ int, _ round.Challenge, rng round.Rand) round.Challenge {
	cards := append(slices.Clone(cardIcons), cardIcons...)
	round.Shuffle(rng, len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return &Deck{Cards: cards}
}

func (g *MemoryMatchRules) Normalize(key string) string { return strings.TrimSpace(key) }

func (g *MemoryMatchRules) Check(ch round.Challenge, input []string) round.Verdict {
	d := ch.(*Deck)
	i, err := strconv.Atoi(input[len(input)-1])
	if err != nil || i < 0 || i >= len(d.Cards) {
		return round.Verdict{Outcome: round.Invalid, Message: "No such card"}
	}
	matched, open, _, _ := d.board(input[:len(input)-1])
	if matched[i] || i == open {
		return round.Verdict{Outcome: round.Invalid, Message: "Card already face up"}
	}
	if open < 0 {
		return round.Verdict{Outcome: round.Pending}
	}
	if d.Cards[open] != d.Cards[i] {
		return round.Verdict{Outcome: round.Miss, Message: "No match"}
	}
	if len(matched)+2 == len(d.Cards) {
		return round.Verdict{Outcome: round.Correct, Message: "All pairs found!"}
	}
	return round.Verdict{Outcome: round.Pending, Message: "Match!"}
}

// Score rewards few moves and a fast finish.
func Score(moves int, elapsed time.Duration) int {
	return max(1000-(moves*10+int(elapsed/time.Second)*5), 0)
}

func (g *MemoryMatchRules) Result(ch round.Challenge, s round.Snapshot) round.Result {
	_, _, _, moves := ch.(*Deck).board(s.Input)
	secs := max(s.Elapsed(time.Time{}), 0)
	return round.Result{
		Value: Score(moves, secs),
		Text:  fmt.Sprintf("Moves: %d, Time: %ds", moves, int(secs/time.Second)),
	}
}
