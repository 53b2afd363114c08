// Package engine derives the client's view of an RPSLS game from server pushes.
//
// The engine package implements:
//   - Reduce, a pure function from (state, push) to the next state
//   - Submit, the play submission guard (at most one outstanding play)
//   - Lock release policies and an optional stuck-lock timeout
//
// Core Types:
//
// State is the complete derived view: session id, round, both scores, both
// plays, the round summary, the one-shot JustWon flag and the submission
// lock. Engine wraps a State for callers that want methods instead of pure
// functions; it is not safe for concurrent use and is meant to be owned by a
// single event loop.
//
// Reconciliation:
//
// Reduce runs once per inbound push, never once per changed field. A tied
// round (rock against rock) leaves both scores unchanged but still carries a
// new theirPlay and roundSummary, and those must land in the state.
//
//	state = engine.Reduce(state, push, engine.ReleaseOnAnyPush)
//
// Submission:
//
//	next, ok := engine.Submit(state, protocol.Spock, time.Now())
//	if ok {
//		conn.Send(protocol.PlayMessage(userID, next.GameID, next.Round, protocol.Spock))
//	}
//
// A submit while locked returns the state unchanged and false. The lock is
// released by the next push (ReleaseOnAnyPush), by a push for a later round
// (ReleaseOnRoundAdvance), or by ExpireLock once a configured timeout passes.
package engine
