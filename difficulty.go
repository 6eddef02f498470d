package wordweave

import "strings"

// Difficulty is a CEFR vocabulary level.
type Difficulty string

const (
	A1 Difficulty = "A1"
	A2 Difficulty = "A2"
	B1 Difficulty = "B1"
	B2 Difficulty = "B2"
	C1 Difficulty = "C1"
	C2 Difficulty = "C2"
)

// DefaultDifficulty is assumed when a provider omits the level.
const DefaultDifficulty = B1

// Levels lists the CEFR levels from easiest to hardest.
var Levels = []Difficulty{A1, A2, B1, B2, C1, C2}

// ParseDifficulty normalizes a level string. Unknown values yield ok=false.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	return d, d.Rank() >= 0
}

// Rank returns the ordinal of the level, or -1 when unknown.
func (d Difficulty) Rank() int {
	for i, l := range Levels {
		if l == d {
			return i
		}
	}
	return -1
}

// OrDefault returns d, or DefaultDifficulty when d is empty.
func (d Difficulty) OrDefault() Difficulty {
	if d == "" {
		return DefaultDifficulty
	}
	return d
}

// Meets reports whether a word of level d should be shown to a user whose
// floor is min. Unknown word levels rank below A1 and never pass a known floor.
func (d Difficulty) Meets(min Difficulty) bool {
	return d.OrDefault().Rank() >= min.OrDefault().Rank()
}
