package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/rpsls/game/protocol"
)

// WaitingMessage is shown before any round has been scored
const WaitingMessage = "Joined! Waiting for a round to finish..."

// LockPolicy decides which pushes release the submission lock
type LockPolicy string

const (
	// ReleaseOnAnyPush releases on every inbound push, whatever it carries
	ReleaseOnAnyPush LockPolicy = "any"

	// ReleaseOnRoundAdvance releases only on a push whose round is greater
	// than the round the play was submitted in
	ReleaseOnRoundAdvance LockPolicy = "round"
)

var ErrUnknownLockPolicy = errors.New("unknown lock policy")

// ParseLockPolicy converts a config value into a LockPolicy. Empty means
// ReleaseOnAnyPush.
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch LockPolicy(s) {
	case "", ReleaseOnAnyPush:
		return ReleaseOnAnyPush, nil
	case ReleaseOnRoundAdvance:
		return ReleaseOnRoundAdvance, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLockPolicy, s)
	}
}

// State is the client's derived view of the game
type State struct {
	GameID string `json:"game_id,omitempty"`
	Round  int    `json:"round"`

	YourScore  int `json:"your_score"`
	TheirScore int `json:"their_score"`

	YourPlay     protocol.Play `json:"your_play,omitempty"`
	TheirPlay    protocol.Play `json:"their_play,omitempty"`
	RoundSummary string        `json:"round_summary,omitempty"`
	Winner       bool          `json:"winner"`
	JustWon      bool          `json:"just_won"`

	Locked      bool      `json:"locked"`
	LockedRound int       `json:"locked_round,omitempty"`
	LockedAt    time.Time `json:"locked_at,omitempty"`

	Pushes int `json:"pushes"`
}

// Waiting reports whether no round has been scored yet. Derived from the
// scores; the server sends no explicit flag.
func (s State) Waiting() bool {
	return s.YourScore == 0 && s.TheirScore == 0
}

// Status is the line to show under the scores
func (s State) Status() string {
	if s.Waiting() {
		return WaitingMessage
	}
	return s.RoundSummary
}
