package protocol

import (
	"encoding/json"
	"fmt"
)

// Push is a server-originated state update. A nil field was not present on
// the wire.
type Push struct {
	GameID       *string `json:"gameId,omitempty"`
	Round        *int    `json:"round,omitempty"`
	RoundSummary *string `json:"roundSummary,omitempty"`
	YourScore    *int    `json:"yourScore,omitempty"`
	YourPlay     *Play   `json:"yourPlay,omitempty"`
	TheirScore   *int    `json:"theirScore,omitempty"`
	TheirPlay    *Play   `json:"theirPlay,omitempty"`
	Winner       *bool   `json:"winner,omitempty"`
}

// IsEmpty reports whether the push carries no recognized field
func (p Push) IsEmpty() bool {
	return p.GameID == nil && p.Round == nil && p.RoundSummary == nil &&
		p.YourScore == nil && p.YourPlay == nil && p.TheirScore == nil &&
		p.TheirPlay == nil && p.Winner == nil
}

// DecodePush decodes one push object. Fields are decoded independently so a
// single malformed field does not discard the others; the returned error is
// non-nil only when data is not a JSON object at all.
func DecodePush(data []byte) (Push, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Push{}, fmt.Errorf("failed to decode push: %w", err)
	}

	var p Push
	p.GameID = field[string](raw, "gameId")
	p.Round = field[int](raw, "round")
	p.RoundSummary = field[string](raw, "roundSummary")
	p.YourScore = field[int](raw, "yourScore")
	p.YourPlay = field[Play](raw, "yourPlay")
	p.TheirScore = field[int](raw, "theirScore")
	p.TheirPlay = field[Play](raw, "theirPlay")
	p.Winner = field[bool](raw, "winner")
	return p, nil
}

func field[T any](raw map[string]json.RawMessage, key string) *T {
	data, ok := raw[key]
	if !ok || string(data) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return &v
}
