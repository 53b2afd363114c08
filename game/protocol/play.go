package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Play is one of the five hand shapes
type Play string

const (
	Rock     Play = "rock"
	Paper    Play = "paper"
	Scissors Play = "scissors"
	Lizard   Play = "lizard"
	Spock    Play = "spock"
)

var ErrInvalidPlay = errors.New("invalid play")

var plays = []Play{Rock, Paper, Scissors, Lizard, Spock}

// Plays returns all valid plays in canonical order
func Plays() []Play {
	out := make([]Play, len(plays))
	copy(out, plays)
	return out
}

// ParsePlay converts user or wire input into a Play. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParsePlay(s string) (Play, error) {
	p := Play(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlay, s)
	}
	return p, nil
}

// Valid reports whether p is one of the five plays
func (p Play) Valid() bool {
	for _, v := range plays {
		if v == p {
			return true
		}
	}
	return false
}

func (p Play) String() string {
	return string(p)
}
