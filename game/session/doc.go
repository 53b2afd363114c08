// Package session resolves which game session the client belongs to.
//
// The session package implements:
//   - The navigable Address abstraction (a share link in a terminal client)
//   - Handshake selection: "new" when the address has no session segment,
//     "join" when it does
//   - A one-shot address write-back once the server assigns a session id
//
// Session Identifiers:
//
// The first path segment of the address is the externally visible session
// id. "https://rpsls.example/" starts a new game; "https://rpsls.example/ABCDE"
// joins game ABCDE.
//
// Address Sync:
//
// When a new game is created the server reports its id in a later push.
// Resolver.Sync writes "/<id>" back into the address exactly once, without
// reconnecting, so the link can be shared from that point on. It is meant
// to be called from a state-change effect, never from connection setup.
//
// Usage:
//
//	addr, err := session.ParseURLAddress("https://rpsls.example/")
//	if err != nil {
//		log.Fatal(err)
//	}
//	resolver := session.NewResolver(addr)
//	hello := resolver.Handshake(userID)
//
//	// later, for every derived state
//	resolver.Sync(state.GameID)
package session
