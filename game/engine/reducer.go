package engine

import "github.com/wricardo/rpsls/game/protocol"

// Reduce applies one push to prev and returns the next state. It must be
// called exactly once per inbound push.
func Reduce(prev State, p protocol.Push, policy LockPolicy) State {
	next := prev
	next.Pushes++

	// One-shot: only a score of exactly previous+1 counts as a win
	next.JustWon = p.YourScore != nil && *p.YourScore == prev.YourScore+1

	if p.YourScore != nil {
		next.YourScore = *p.YourScore
	}
	if p.TheirScore != nil {
		next.TheirScore = *p.TheirScore
	}
	if p.RoundSummary != nil {
		next.RoundSummary = *p.RoundSummary
	}
	if p.TheirPlay != nil {
		next.TheirPlay = *p.TheirPlay
	}
	if p.YourPlay != nil && *p.YourPlay != "" {
		next.YourPlay = *p.YourPlay
	}
	if p.Winner != nil {
		next.Winner = *p.Winner
	}

	if p.Round != nil && *p.Round >= prev.Round {
		next.Round = *p.Round
	}
	// gameId is immutable once known
	if p.GameID != nil && *p.GameID != "" && prev.GameID == "" {
		next.GameID = *p.GameID
	}

	if prev.Locked && releases(prev, p, policy) {
		next = unlock(next)
	}

	return next
}

func releases(prev State, p protocol.Push, policy LockPolicy) bool {
	switch policy {
	case ReleaseOnRoundAdvance:
		return p.Round != nil && *p.Round > prev.LockedRound
	default:
		return true
	}
}
