// internal/catalog/catalog.go
//
// Game types and achievement definitions, loaded from YAML.
// Responsibilities:
//   - Parse and validate the catalog (unique codes, known operators).
//   - Look up game types and achievements by code.
//   - Evaluate achievement conditions against a progress map.

package catalog

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/gamecentr/assets"
)

// AllGames marks achievements that can be earned from any game.
const AllGames = "all"

var ErrNotFound = errors.New("not found")

// GameType describes a playable game and how its scores read.
type GameType struct {
	Code        string `yaml:"code" json:"game_code"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	ScoringType string `yaml:"scoring_type" json:"scoring_type"`
	MaxScore    *int   `yaml:"max_score" json:"max_score,omitempty"`
}

// Condition compares one progress key with a constant.
type Condition struct {
	Key   string `yaml:"key" json:"key"`
	Op    string `yaml:"op" json:"op"`
	Value any    `yaml:"value" json:"value"`
}

// Achievement is an unlockable badge.
type Achievement struct {
	Game        string      `yaml:"game" json:"gameCode"`
	Code        string      `yaml:"code" json:"code"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description" json:"description"`
	Icon        string      `yaml:"icon" json:"icon"`
	Difficulty  string      `yaml:"difficulty" json:"difficulty"`
	Hidden      bool        `yaml:"hidden" json:"isHidden"`
	When        []Condition `yaml:"when" json:"-"`
}

// Catalog is the parsed catalog file.
type Catalog struct {
	GameTypes    []GameType    `yaml:"game_types"`
	Achievements []Achievement `yaml:"achievements"`

	games map[string]GameType
	byKey map[string]Achievement
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	b, err := assets.Catalog()
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes and validates a catalog document.
func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c.games = make(map[string]GameType, len(c.GameTypes))
	for _, g := range c.GameTypes {
		if g.Code == "" {
			return nil, errors.New("catalog: game type without code")
		}
		if _, dup := c.games[g.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate game type %q", g.Code)
		}
		c.games[g.Code] = g
	}
	c.byKey = make(map[string]Achievement, len(c.Achievements))
	for _, a := range c.Achievements {
		if a.Game != AllGames {
			if _, ok := c.games[a.Game]; !ok {
				return nil, fmt.Errorf("catalog: achievement %q for unknown game %q", a.Code, a.Game)
			}
		}
		if _, dup := c.byKey[a.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate achievement %q", a.Code)
		}
		if len(a.When) == 0 {
			return nil, fmt.Errorf("catalog: achievement %q has no conditions", a.Code)
		}
		for _, cond := range a.When {
			if _, ok := ops[cond.Op]; !ok {
				return nil, fmt.Errorf("catalog: achievement %q: unknown op %q", a.Code, cond.Op)
			}
		}
		c.byKey[a.Code] = a
	}
	return &c, nil
}

// Game returns the game type for code.
func (c *Catalog) Game(code string) (GameType, error) {
	g, ok := c.games[code]
	if !ok {
		return GameType{}, ErrNotFound
	}
	return g, nil
}

// HasGame reports whether scores may be recorded for code.
func (c *Catalog) HasGame(code string) bool {
	_, ok := c.games[code]
	return ok
}

// Games lists game types sorted by code.
func (c *Catalog) Games() []GameType {
	out := append([]GameType(nil), c.GameTypes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Achievement returns the achievement with code.
func (c *Catalog) Achievement(code string) (Achievement, error) {
	a, ok := c.byKey[code]
	if !ok {
		return Achievement{}, ErrNotFound
	}
	return a, nil
}

// AchievementsFor lists achievements of game plus the global ones.
// An empty game lists everything.
func (c *Catalog) AchievementsFor(game string) []Achievement {
	var out []Achievement
	for _, a := range c.Achievements {
		if game == "" || a.Game == game || a.Game == AllGames {
			out = append(out, a)
		}
	}
	return out
}

// Unlocked returns the achievements of game (and global ones) whose
// conditions all hold for progress.
func (c *Catalog) Unlocked(game string, progress map[string]any) []Achievement {
	var out []Achievement
	for _, a := range c.AchievementsFor(game) {
		if a.Met(progress) {
			out = append(out, a)
		}
	}
	return out
}
