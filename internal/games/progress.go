// internal/games/progress.go
//
// Achievement progress reported by each game when it finishes.
// Keys match the conditions in assets/catalog.yaml; the achievement package
// adds the game-independent ones (completed, timeSpent, hour, playCount …).

package games

import (
	"strconv"
	"strings"

	"github.com/robalobadob/gamecentr/internal/round"
)

func won(s round.Snapshot) bool { return s.State == round.StateWon }

func (g *Sequence) Progress(_ round.Challenge, s round.Snapshot) map[string]any {
	level := s.Round
	if !won(s) {
		level = s.Round - 1
	}
	return map[string]any{"level": level}
}

func (g *ColorGuessRules) Progress(_ round.Challenge, s round.Snapshot) map[string]any {
	return map[string]any{"correctAnswers": s.Score}
}

func (g *QuickMathRules) Progress(_ round.Challenge, s round.Snapshot) map[string]any {
	return map[string]any{
		"streak":            s.BestStreak,
		"questionsAnswered": s.Score,
	}
}

func (g *WhackAMoleRules) Progress(_ round.Challenge, s round.Snapshot) map[string]any {
	return map[string]any{
		"molesWhacked": s.Score,
		"streak":       s.BestStreak,
	}
}

// Progress reports how many guesses were made and how close the best one got.
func (g *GuessRules) Progress(ch round.Challenge, s round.Snapshot) map[string]any {
	n := ch.(*HiddenNumber).N
	p := map[string]any{
		"guessCount": len(s.Input),
		"correct":    won(s),
	}
	best := -1
	for _, in := range s.Input {
		v, err := strconv.Atoi(in)
		if err != nil {
			continue
		}
		d := max(v-n, n-v)
		if best < 0 || d < best {
			best = d
		}
	}
	if best >= 0 {
		p["distance"] = best
	}
	return p
}

func (g *HangmanRules) Progress(ch round.Challenge, s round.Snapshot) map[string]any {
	word := ch.(*HangmanChallenge).Word
	vowels, guessed := 0, 0
	for _, v := range "aeiou" {
		if strings.ContainsRune(word, v) {
			vowels++
			for _, in := range s.Input {
				if in == string(v) {
					guessed++
					break
				}
			}
		}
	}
	return map[string]any{
		"incorrectGuesses": s.Mistakes,
		"remainingGuesses": hangmanMistakes - s.Mistakes,
		"solved":           won(s),
		"allVowelsGuessed": vowels > 0 && guessed == vowels,
	}
}

// Progress reports mismatches and the longest run of consecutive matches.
func (g *MemoryMatchRules) Progress(ch round.Challenge, s round.Snapshot) map[string]any {
	d := ch.(*Deck)
	run, best, open := 0, 0, -1
	for _, in := range s.Input {
		i, err := strconv.Atoi(in)
		if err != nil {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		if d.Cards[open] == d.Cards[i] {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
		open = -1
	}
	return map[string]any{
		"incorrectMatches": s.Mistakes,
		"streak":           best,
	}
}
