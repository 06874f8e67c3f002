// internal/games/colorguess.go
//
// Color guess: a set of color swatches is shown with a target name; the
// player picks the swatch matching the name. Wrong picks cost a mistake and
// the player tries again; the option count grows every two rounds.

package games

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/gamecentr/internal/round"
)

// Color is a named swatch.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

var palette = []Color{
	{"Red", "#FF0000"}, {"Crimson", "#DC143C"}, {"Dark Red", "#8B0000"}, {"Indian Red", "#CD5C5C"},
	{"Light Coral", "#F08080"}, {"Maroon", "#800000"}, {"Tomato", "#FF6347"}, {"Firebrick", "#B22222"},
	{"Pink", "#FFC0CB"}, {"Deep Pink", "#FF1493"}, {"Hot Pink", "#FF69B4"}, {"Light Pink", "#FFB6C1"},
	{"Pale Violet Red", "#DB7093"}, {"Orange", "#FFA500"}, {"Dark Orange", "#FF8C00"}, {"Coral", "#FF7F50"},
	{"Salmon", "#FA8072"}, {"Light Salmon", "#FFA07A"}, {"Sienna", "#A0522D"}, {"Sandy Brown", "#F4A460"},
	{"Yellow", "#FFFF00"}, {"Gold", "#FFD700"}, {"Golden Rod", "#DAA520"}, {"Dark Golden Rod", "#B8860B"},
	{"Khaki", "#F0E68C"}, {"Pale Golden Rod", "#EEE8AA"}, {"Lemon Chiffon", "#FFFACD"}, {"Light Yellow", "#FFFFE0"},
	{"Beige", "#F5F5DC"}, {"Green", "#008000"}, {"Forest Green", "#228B22"}, {"Sea Green", "#2E8B57"},
	{"Dark Green", "#006400"}, {"Medium Sea Green", "#3CB371"}, {"Light Sea Green", "#20B2AA"}, {"Spring Green", "#00FF7F"},
	{"Olive Drab", "#6B8E23"}, {"Lime Green", "#32CD32"}, {"Chartreuse", "#7FFF00"}, {"Dark Olive Green", "#556B2F"},
	{"Yellow Green", "#9ACD32"}, {"Olive", "#808000"}, {"Lawn Green", "#7CFC00"}, {"Medium Spring Green", "#00FA9A"},
	{"Dark Sea Green", "#8FBC8F"}, {"Aquamarine", "#7FFFD4"}, {"Medium Aquamarine", "#66CDAA"}, {"Mint Cream", "#F5FFFA"},
	{"Honeydew", "#F0FFF0"}, {"Dark Slate Gray", "#2F4F4F"}, {"Teal", "#008080"}, {"Dark Cyan", "#008B8B"},
	{"Aqua", "#00FFFF"}, {"Cyan", "#00FFFF"}, {"Light Cyan", "#E0FFFF"}, {"Turquoise", "#40E0D0"},
	{"Medium Turquoise", "#48D1CC"}, {"Dark Turquoise", "#00CED1"}, {"Cadet Blue", "#5F9EA0"}, {"Steel Blue", "#4682B4"},
	{"Light Steel Blue", "#B0C4DE"}, {"Powder Blue", "#B0E0E6"}, {"Light Blue", "#ADD8E6"}, {"Sky Blue", "#87CEEB"},
	{"Deep Sky Blue", "#00BFFF"}, {"Dodger Blue", "#1E90FF"}, {"Cornflower Blue", "#6495ED"}, {"Royal Blue", "#4169E1"},
	{"Navy", "#000080"}, {"Midnight Blue", "#191970"}, {"Blue", "#0000FF"}, {"Dark Blue", "#00008B"},
	{"Medium Blue", "#0000CD"}, {"Medium Slate Blue", "#7B68EE"}, {"Slate Blue", "#6A5ACD"}, {"Dark Slate Blue", "#483D8B"},
	{"Indigo", "#4B0082"}, {"Purple", "#800080"}, {"Violet", "#EE82EE"}, {"Orchid", "#DA70D6"},
	{"Plum", "#DDA0DD"}, {"Thistle", "#D8BFD8"}, {"Lavender", "#E6E6FA"}, {"Lavender Blush", "#FFF0F5"},
	{"Magenta", "#FF00FF"}, {"Fuchsia", "#FF00FF"}, {"Dark Magenta", "#8B008B"}, {"Rebecca Purple", "#663399"},
	{"Medium Violet Red", "#C71585"}, {"Brown", "#A52A2A"}, {"Chocolate", "#D2691E"}, {"Saddle Brown", "#8B4513"},
	{"Peru", "#CD853F"}, {"Rosy Brown", "#BC8F8F"}, {"Tan", "#D2B48C"}, {"Burlywood", "#DEB887"},
	{"Wheat", "#F5DEB3"}, {"Navajo White", "#FFDEAD"}, {"Bisque", "#FFE4C4"}, {"Blanched Almond", "#FFE4C4"},
	{"Papaya Whip", "#FFEFD5"}, {"Moccasin", "#FFE4B5"}, {"Peach Puff", "#FFDAB9"}, {"Antique White", "#FAEBD7"},
	{"Linen", "#FAF0E6"}, {"Old Lace", "#FDF5E6"}, {"White Smoke", "#F5F5F5"}, {"Gainsboro", "#DCDCDC"},
	{"Light Gray", "#D3D3D3"}, {"Silver", "#C0C0C0"}, {"Gray", "#808080"}, {"Dim Gray", "#696969"},
	{"Slate Gray", "#708090"}, {"Light Slate Gray", "#778899"}, {"Dark Gray", "#A9A9A9"}, {"Black", "#000000"},
	{"White", "#FFFFFF"},
}

// ColorChallenge is one round of color guess.
type ColorChallenge struct {
	Options []Color
	Target  int
}

func (c *ColorChallenge) Steps() int { return 0 }

// Public exposes the options and the target name, plus the wrong picks so far.
func (c *ColorChallenge) Public(input []string, _ int) any {
	return struct {
		Options []Color `json:"options"`
		Target  string  `json:"target"`
		Wrong   []int   `json:"wrong"`
	}{Options: c.Options, Target: c.Options[c.Target].Name, Wrong: c.picks(input)}
}

// pick resolves an option index or a color name; -1 if neither.
func (c *ColorChallenge) pick(in string) int {
	if n, err := strconv.Atoi(in); err == nil {
		if n < 0 || n >= len(c.Options) {
			return -1
		}
		return n
	}
	return slices.IndexFunc(c.Options, func(o Color) bool { return strings.EqualFold(o.Name, in) })
}

func (c *ColorChallenge) picks(input []string) []int {
	out := make([]int, 0, len(input))
	for _, in := range input {
		if n := c.pick(strings.TrimSpace(in)); n >= 0 {
			out = append(out, n)
		}
	}
	return out
}

// ColorGuessRules implements round.Rules.
type ColorGuessRules struct{ set round.Settings }

func NewColorGuess() *ColorGuessRules {
	return &ColorGuessRules{set: round.Settings{
		Game:         ColorGuess,
		MaxRounds:    20,
		OnMiss:       round.MissRetry,
		AdvanceDelay: 600 * time.Millisecond,
	}}
}

func (g *ColorGuessRules) Settings() round.Settings { return g.set }

func (g *ColorGuessRules) Normalize(key string) string { return strings.TrimSpace(key) }

// OptionCount is 4 for rounds 1-2, growing by one every two rounds, capped at 12.
func OptionCount(r int) int {
	return min(4+(r-1)/2, 12)
}

func (g *ColorGuessRules) NewChallenge(r int, _ round.Challenge, rng round.Rand) round.Challenge {
	idx := make([]int, len(palette))
	for i := range idx {
		idx[i] = i
	}
	round.Shuffle(rng, len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	n := OptionCount(r)
	opts := make([]Color, n)
	for i := range opts {
		opts[i] = palette[idx[i]]
	}
	return &ColorChallenge{Options: opts, Target: rng.Intn(n)}
}

func (g *ColorGuessRules) Check(ch round.Challenge, input []string) round.Verdict {
	c := ch.(*ColorChallenge)
	pick := c.pick(strings.TrimSpace(input[len(input)-1]))
	if pick < 0 {
		return round.Verdict{Outcome: round.Invalid, Message: "Pick one of the shown colors"}
	}
	if slices.Contains(c.picks(input[:len(input)-1]), pick) {
		return round.Verdict{Outcome: round.Invalid, Message: "Already tried that one"}
	}
	if pick != c.Target {
		return round.Verdict{Outcome: round.Miss, Message: "Wrong! Try again."}
	}
	return round.Verdict{Outcome: round.Correct, Message: "Correct!"}
}

func (g *ColorGuessRules) Result(_ round.Challenge, s round.Snapshot) round.Result {
	return round.Result{Value: s.Score, Text: fmt.Sprintf("Score: %d", s.Score)}
}
