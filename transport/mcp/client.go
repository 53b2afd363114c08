package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/wricardo/rpsls/api"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
	"github.com/wricardo/rpsls/game/service"
)

// APIError is a non-2xx response from the control API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

// Client is a thin MCP server that proxies to the local control API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger that records plays and their stated intent
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a new MCP client that calls the control API
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"RPSLS",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Rock Paper Scissors Lizard Spock - MCP Interface

This is a thin client that proxies all requests to a running RPSLS client's control API.

GAME OBJECTIVE:
Each round both players pick one of rock, paper, scissors, lizard or spock. The server
scores the round and pushes the result.

AVAILABLE TOOLS:
- game_state: Current round, scores, both plays and the status line
- play: Submit a play for the current round - requires intent explanation
- session_info: Game id, share link and connection status
- game_instructions: Rules and how play submission works

NOTE: Only one play can be outstanding. After playing, call game_state until the lock is
released before playing again.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	plays := make([]string, 0, 5)
	for _, p := range protocol.Plays() {
		plays = append(plays, p.String())
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play",
		Description: "Submit a play for the current round. Ignored while an earlier play is waiting for the server.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"play": map[string]interface{}{
					"type":        "string",
					"enum":        plays,
					"description": "The hand to throw",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you chose this play (recorded in the client's debug log)",
				},
			},
			Required: []string{"play"},
		},
	}, c.handlePlay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_info",
		Description: "Get the game id, share link and connection status",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSessionInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game and how play submission works",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp api.StateResponse
	if err := c.apiCall(ctx, "GET", "/api/state", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&resp.State)), nil
}

func (c *Client) handlePlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	playArg, _ := args["play"].(string)
	intent, _ := args["intent"].(string)

	play, err := protocol.ParsePlay(playArg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v (valid plays: %s)", err, joinPlays())), nil
	}
	c.logger.Debug().Str("play", play.String()).Str("intent", intent).Msg("play requested")

	var result api.PlayResponse
	err = c.apiCall(ctx, "POST", "/api/play", api.PlayRequest{Play: play.String()}, &result)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return mcp.NewToolResultText(fmt.Sprintf("✗ Play not accepted: %s", apiErr.Message)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayResult(&result)), nil
}

func (c *Client) handleSessionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/session", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `# Rock Paper Scissors Lizard Spock

## Rules
Each play beats two others and loses to two others:
- Scissors cuts paper, and decapitates lizard
- Paper covers rock, and disproves Spock
- Rock crushes lizard, and crushes scissors
- Lizard poisons Spock, and eats paper
- Spock smashes scissors, and vaporizes rock
Identical plays are a tie.

## How a round works
1. Call play with one of: rock, paper, scissors, lizard, spock.
2. The play is locked in until the server pushes its next update.
3. While locked, further plays are ignored (the play tool says "not accepted").
4. Call game_state to see the round summary, both plays and the scores.

## Sessions
A new game gets its id from the server. Share the link from session_info so a second
player can join the same game. Until a round has been scored the status line reads
"` + engine.WaitingMessage + `".`

// Formatting helpers

func formatGameState(state *engine.State) string {
	var b strings.Builder

	gameID := state.GameID
	if gameID == "" {
		gameID = "(not assigned yet)"
	}

	b.WriteString(fmt.Sprintf("Game: %s\n", gameID))
	b.WriteString(fmt.Sprintf("Round: %d\n", state.Round))
	b.WriteString(fmt.Sprintf("Score: you %d - them %d\n", state.YourScore, state.TheirScore))
	b.WriteString(fmt.Sprintf("Your play: %s\n", orDash(state.YourPlay.String())))
	b.WriteString(fmt.Sprintf("Their play: %s\n", orDash(state.TheirPlay.String())))

	if status := state.Status(); status != "" {
		b.WriteString(fmt.Sprintf("Status: %s\n", status))
	}

	if state.JustWon {
		b.WriteString("\n🎉 You won the last round!\n")
	}

	if state.Locked {
		b.WriteString("\n⏳ Waiting for the server; plays are locked\n")
	} else {
		b.WriteString("\n✓ Ready for your play\n")
	}

	return b.String()
}

func formatPlayResult(result *api.PlayResponse) string {
	if !result.Accepted {
		return fmt.Sprintf("✗ Play not accepted: %s", result.Message)
	}
	return fmt.Sprintf("✓ Played %s in round %d\nWaiting for the server to score the round.",
		result.Play, result.State.Round)
}

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("User: %s\n", info.UserID))
	b.WriteString(fmt.Sprintf("Game: %s\n", orDash(info.GameID)))
	if info.ShareLink != "" {
		b.WriteString(fmt.Sprintf("Share link: %s\n", info.ShareLink))
	}
	mode := "new game"
	if info.Joined {
		mode = "joined"
	}
	b.WriteString(fmt.Sprintf("Mode: %s\n", mode))
	b.WriteString(fmt.Sprintf("Connection: %s\n", info.Status))
	b.WriteString(fmt.Sprintf("Lock policy: %s (timeout %s)\n", info.LockPolicy, info.LockTimeout))

	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinPlays() string {
	var names []string
	for _, p := range protocol.Plays() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}
