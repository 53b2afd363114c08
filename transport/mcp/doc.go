// Package mcp provides a Model Context Protocol server for the RPSLS client.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for game operations
//   - Proxying of every tool to the local control API
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - game_state: Current round, scores, plays, status and lock
//   - play: Submit rock, paper, scissors, lizard or spock
//   - session_info: Game id, share link and connection status
//   - game_instructions: Rules and the one-play-per-round lock
//
// The server holds no game state. A running client (the play or serve
// command) owns the connection; this package talks to its control API
// over HTTP, so an agent and a human can share one game.
//
// Usage:
//
//	client := mcp.NewClient("http://127.0.0.1:8090")
//	server.ServeStdio(client.GetMCPServer())
//
// A play that is refused because an earlier one is still outstanding is
// reported as a normal tool result, not a tool error.
package mcp
