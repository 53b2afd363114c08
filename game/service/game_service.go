package service

import (
	"context"

	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
)

// GameService defines the operations of one running game client
type GameService interface {
	// Lifecycle
	Start(ctx context.Context) error
	Close() error
	Done() <-chan struct{}

	// Game Operations
	Play(ctx context.Context, play protocol.Play) (bool, error)

	// Game State
	State(ctx context.Context) (engine.State, error)
	Info() SessionInfo
	Subscribe() (<-chan engine.State, func())
}

// Connection is the duplex channel to the game server
type Connection interface {
	Open(ctx context.Context, hello protocol.Message) error
	Send(msg protocol.Message) error
	Pushes() <-chan protocol.Push
	Done() <-chan struct{}
	Clean() bool
	Err() error
	Close() error
}

// IdentityProvider supplies the user id sent with every message
type IdentityProvider interface {
	UserID() string
}
