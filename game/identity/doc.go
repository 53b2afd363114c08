// Package identity provides the stable per-client user identifier.
//
// The identity package implements:
//   - A small key-value Store abstraction
//   - FileStore, a JSON file backed store that survives restarts
//   - MemoryStore, an in-process store for tests and throwaway clients
//   - Provider, which gets or creates the user id under a fixed key
//
// The user id is generated once, persisted, and sent as "userId" on every
// outbound message. A Provider without a store, or whose store cannot be
// written, still returns a usable id; it simply will not survive a restart.
//
// Usage:
//
//	store, err := identity.NewFileStore("~/.rpsls")
//	if err != nil {
//		log.Fatal(err)
//	}
//	provider := identity.NewProvider(store)
//	userID := provider.UserID()
package identity
