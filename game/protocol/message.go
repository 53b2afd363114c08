package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action discriminates outbound messages
type Action string

const (
	ActionNew  Action = "new"
	ActionJoin Action = "join"
	ActionPlay Action = "play"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingUserID = errors.New("userId is required")
	ErrMissingGameID = errors.New("gameId is required")
	ErrMissingRound  = errors.New("round is required")
)

// Message is a client to server message
type Message struct {
	Action Action `json:"action"`
	UserID string `json:"userId"`
	GameID string `json:"gameId,omitempty"`
	Round  *int   `json:"round,omitempty"`
	Play   Play   `json:"play,omitempty"`
}

// NewGameMessage asks the server to create a session for userID
func NewGameMessage(userID string) Message {
	return Message{Action: ActionNew, UserID: userID}
}

// JoinMessage asks the server to seat userID in an existing session
func JoinMessage(userID, gameID string) Message {
	return Message{Action: ActionJoin, UserID: userID, GameID: gameID}
}

// PlayMessage submits a play for the given round
func PlayMessage(userID, gameID string, round int, play Play) Message {
	return Message{
		Action: ActionPlay,
		UserID: userID,
		GameID: gameID,
		Round:  &round,
		Play:   play,
	}
}

// Validate checks the required fields for the message's action
func (m Message) Validate() error {
	if m.UserID == "" {
		return ErrMissingUserID
	}

	switch m.Action {
	case ActionNew:
		return nil
	case ActionJoin:
		if m.GameID == "" {
			return ErrMissingGameID
		}
		return nil
	case ActionPlay:
		if m.GameID == "" {
			return ErrMissingGameID
		}
		if m.Round == nil {
			return ErrMissingRound
		}
		if !m.Play.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidPlay, m.Play)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, m.Action)
	}
}

// Encode validates and marshals the message for the wire
func (m Message) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
