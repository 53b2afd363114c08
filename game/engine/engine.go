package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/rpsls/game/protocol"
)

// Engine holds a State and applies pushes and submissions to it
type Engine struct {
	state       State
	policy      LockPolicy
	lockTimeout time.Duration
}

// NewEngine creates an engine with the given lock settings
func NewEngine(policy LockPolicy, lockTimeout time.Duration) (*Engine, error) {
	p, err := ParseLockPolicy(string(policy))
	if err != nil {
		return nil, err
	}
	if lockTimeout < 0 {
		return nil, fmt.Errorf("lock timeout cannot be negative: %s", lockTimeout)
	}

	return &Engine{
		policy:      p,
		lockTimeout: lockTimeout,
	}, nil
}

// GetState returns a copy of the current state
func (e *Engine) GetState() State {
	return e.state
}

// SetState replaces the current state
func (e *Engine) SetState(s State) {
	e.state = s
}

// Policy returns the lock release policy
func (e *Engine) Policy() LockPolicy {
	return e.policy
}

// LockTimeout returns the stuck-lock timeout, 0 meaning never
func (e *Engine) LockTimeout() time.Duration {
	return e.lockTimeout
}

// Apply reduces one push into the state
func (e *Engine) Apply(p protocol.Push) State {
	e.state = Reduce(e.state, p, e.policy)
	return e.state
}

// TrySubmit runs the submission guard. On success it returns the play
// message to send for userID.
func (e *Engine) TrySubmit(userID string, play protocol.Play, now time.Time) (protocol.Message, bool) {
	next, ok := Submit(e.state, play, now)
	if !ok {
		return protocol.Message{}, false
	}
	e.state = next
	return protocol.PlayMessage(userID, next.GameID, next.Round, play), true
}

// Expire releases a stuck lock if the timeout has passed
func (e *Engine) Expire(now time.Time) bool {
	next, expired := ExpireLock(e.state, now, e.lockTimeout)
	e.state = next
	return expired
}

// IsLocked reports whether a play is outstanding
func (e *Engine) IsLocked() bool {
	return e.state.Locked
}
