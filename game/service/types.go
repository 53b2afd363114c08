package service

import (
	"errors"
	"time"

	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
)

var (
	ErrNotStarted     = errors.New("game not started")
	ErrAlreadyStarted = errors.New("game already started")
	ErrNoSession      = errors.New("no game session yet")
	ErrClosed         = errors.New("game connection closed")
)

// ConnectionStatus is the lifecycle of the server connection
type ConnectionStatus string

const (
	StatusIdle      ConnectionStatus = "idle"
	StatusConnected ConnectionStatus = "connected"
	StatusClosed    ConnectionStatus = "closed"
	StatusLost      ConnectionStatus = "lost"
)

// SessionInfo describes the running client and its session
type SessionInfo struct {
	UserID    string `json:"user_id"`
	GameID    string `json:"game_id,omitempty"`
	ShareLink string `json:"share_link,omitempty"`
	ServerURL string `json:"server_url,omitempty"`

	// Joined is true when the session id came from the address at startup
	Joined bool `json:"joined"`

	Status      ConnectionStatus  `json:"status"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	LockPolicy  engine.LockPolicy `json:"lock_policy"`
	LockTimeout string            `json:"lock_timeout"`
}

type playRequest struct {
	play  protocol.Play
	reply chan playResult
}

type playResult struct {
	accepted bool
	err      error
}
