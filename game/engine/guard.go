package engine

import (
	"time"

	"github.com/wricardo/rpsls/game/protocol"
)

// Submit is the play submission guard. When unlocked it optimistically
// records play, clears the transient round fields, locks, and returns true;
// the caller then sends the play message. When locked it returns prev
// unchanged and false: the play is dropped, not queued.
func Submit(prev State, play protocol.Play, now time.Time) (State, bool) {
	if prev.Locked {
		return prev, false
	}

	next := prev
	next.YourPlay = play
	next.TheirPlay = ""
	next.RoundSummary = ""
	next.JustWon = false
	next.Locked = true
	next.LockedRound = prev.Round
	next.LockedAt = now
	return next, true
}

// ExpireLock releases a lock held longer than timeout. A zero timeout never
// expires, which leaves a lock with no answering push held forever.
func ExpireLock(s State, now time.Time, timeout time.Duration) (State, bool) {
	if !s.Locked || timeout <= 0 {
		return s, false
	}
	if now.Sub(s.LockedAt) < timeout {
		return s, false
	}
	return unlock(s), true
}

func unlock(s State) State {
	s.Locked = false
	s.LockedRound = 0
	s.LockedAt = time.Time{}
	return s
}
