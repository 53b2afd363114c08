package session

import (
	"fmt"
	"sync"

	"github.com/wricardo/rpsls/game/protocol"
)

// Resolver decides the handshake and keeps the address in sync with the
// session id
type Resolver struct {
	addr    Address
	gameID  string
	written bool
	mu      sync.Mutex
}

// NewResolver inspects addr once and remembers any session id it carries
func NewResolver(addr Address) *Resolver {
	return &Resolver{
		addr:   addr,
		gameID: FirstSegment(addr.Path()),
	}
}

// GameID returns the locally known session id, empty if none yet
func (r *Resolver) GameID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameID
}

// IsJoin reports whether the address named a session at startup
func (r *Resolver) IsJoin() bool {
	return r.GameID() != ""
}

// Handshake returns the first message to send after the connection opens
func (r *Resolver) Handshake(userID string) protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gameID == "" {
		return protocol.NewGameMessage(userID)
	}
	return protocol.JoinMessage(userID, r.gameID)
}

// Sync writes gameID into the address if no id is set locally yet. It writes
// at most once per resolver and reports whether it did.
func (r *Resolver) Sync(gameID string) (bool, error) {
	if gameID == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gameID != "" || r.written {
		return false, nil
	}

	if err := r.addr.Replace("/" + gameID); err != nil {
		return false, fmt.Errorf("failed to update address: %w", err)
	}
	r.gameID = gameID
	r.written = true
	return true, nil
}
