// Package service runs one RPSLS game client.
//
// The service package implements:
//   - The startup sequence: identity, handshake choice, connection open
//   - A single event loop owning the derived game state
//   - Play submission through the one-outstanding-play guard
//   - Share link sync as an effect of state changes
//   - State subscriptions for views and observers
//
// Core Interfaces:
//
// GameService is what the transports (terminal view, control API, MCP)
// depend on. Connection abstracts the server websocket so the loop can be
// driven by a fake in tests. IdentityProvider supplies the user id.
//
// Architecture:
//
// Service.Start blocks for the life of the game. Pushes from the
// connection, play requests, state reads and lock-expiry ticks are all
// selected on one goroutine, so the engine state is never shared. After
// every change the new state is offered to subscribers (newest snapshot
// wins) and, once a game id is known, the session resolver writes it into
// the share link.
//
// Usage:
//
//	svc, err := service.New(service.Options{
//		Conn:        websocket.NewConn(websocket.DefaultConfig(url)),
//		Identity:    identity.NewProvider(store),
//		Resolver:    session.NewResolver(addr),
//		Link:        addr,
//		LockPolicy:  engine.ReleaseOnAnyPush,
//		Logger:      logger,
//	})
//	if err != nil {
//		return err
//	}
//	go svc.Start(ctx)
//
//	accepted, err := svc.Play(ctx, protocol.Spock)
//
// Connection End:
//
// When the server closes or the link drops, the loop stops and Done is
// closed. There is no reconnect; the last state stays readable and Info
// reports the connection as closed or lost.
package service
