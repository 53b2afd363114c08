// Package api provides the local HTTP control API for the RPSLS client.
//
// The api package implements:
//   - Read access to the derived game state and session info
//   - Play submission through the same guard the terminal uses
//   - A health endpoint
//   - The observer WebSocket endpoint
//
// Endpoints:
//
// Game State:
//   - GET /api/state - Current state with its status line
//   - GET /api/session - User id, game id, share link, connection status
//   - GET /api/plays - The five valid plays
//
// Game Operations:
//   - POST /api/play - Submit a play
//
// Other:
//   - GET /healthz - Liveness and connection status
//   - GET /ws - Observer stream of state changes
//
// Request/Response Format:
//
// Plays are sent as POST with JSON body:
//
//	{"play": "rock|paper|scissors|lizard|spock"}
//
// Responses:
//   - 202 Accepted: the play was sent to the server
//   - 409 Conflict: a play is already outstanding, or no session exists yet
//   - 400 Bad Request: the body is not JSON or the play is not one of the five
//   - 503 Service Unavailable: the game is not running
//
// Usage:
//
//	server := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe("127.0.0.1:8090", server)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "error message"}
package api
