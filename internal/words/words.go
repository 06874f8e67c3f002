// internal/words/words.go
//
// Word list for the hangman game.
//
// Responsibilities:
//   - Load the word list from a configured file or fall back to the embedded default.
//   - Supply RandomWord (seeded, so daily sessions are reproducible) and IsWord.
//
// Initialization behavior (Init):
//   1. If a path is given (HANGMAN_WORDS_FILE), load one word per line from it.
//   2. Otherwise use the embedded `hangman_words.txt`.
//
// Constraints:
//   • Words are 3–16 ASCII letters.
//   • Lists are normalized to lowercase and de-duplicated.
//   • Initialization is run once (sync.Once).

package words

import (
	"bufio"
	_ "embed"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	minLen = 3
	maxLen = 16
)

//go:embed hangman_words.txt
var embeddedWords string

var (
	initOnce   sync.Once
	list       []string
	set        map[string]struct{}
	initialErr error
)

// Intner is the random source used to pick a word.
type Intner interface {
	Intn(n int) int
}

// Init loads the word list exactly once.
// Returns an error if the list ends up empty.
func Init(path string) error {
	initOnce.Do(func() {
		var ws []string
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				initialErr = err
				return
			}
			defer f.Close()
			ws, err = Parse(f)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			ws, _ = Parse(strings.NewReader(embeddedWords))
		}
		list = ws
		set = toSet(ws)
		if len(list) == 0 {
			initialErr = errors.New("words: hangman list is empty")
		}
	})
	return initialErr
}

// Parse reads one word per line, keeping only valid words.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(strings.ToLower(sc.Text()))
		if !valid(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out, sc.Err()
}

// Default returns the embedded list regardless of Init.
func Default() []string {
	ws, _ := Parse(strings.NewReader(embeddedWords))
	return ws
}

// List returns the loaded words (the embedded default if Init was never called).
func List() []string {
	if err := Init(""); err != nil || len(list) == 0 {
		return Default()
	}
	return append([]string(nil), list...)
}

// RandomWord picks a word from ws with rng. Falls back to "hangman" on an empty list.
func RandomWord(ws []string, rng Intner) string {
	if len(ws) == 0 {
		return "hangman"
	}
	return ws[rng.Intn(len(ws))]
}

// IsWord reports whether w is in the loaded list.
func IsWord(w string) bool {
	_ = Init("")
	_, ok := set[strings.ToLower(w)]
	return ok
}

// Count returns how many words are loaded.
func Count() int {
	_ = Init("")
	return len(list)
}

func toSet(ws []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		m[w] = struct{}{}
	}
	return m
}

// valid reports whether w is a lowercase ASCII word of acceptable length.
func valid(w string) bool {
	if len(w) < minLen || len(w) > maxLen {
		return false
	}
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
