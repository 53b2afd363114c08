package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/wricardo/rpsls/api"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
	"github.com/wricardo/rpsls/game/service"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8090/"
	client := NewClient(baseURL)

	if client.baseURL != "http://localhost:8090" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/healthz", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", response["status"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api/state", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/state", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}

	if !strings.Contains(err.Error(), "API error: 500") {
		t.Errorf("Expected 'API error: 500' in error message, got: %v", err)
	}
}

func TestClient_gameState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/api/state" {
			t.Errorf("Expected GET /api/state, got %s %s", r.Method, r.URL.Path)
		}
		state := engine.State{
			GameID:       "ABCDE",
			Round:        3,
			YourScore:    2,
			TheirScore:   1,
			YourPlay:     protocol.Spock,
			TheirPlay:    protocol.Rock,
			RoundSummary: "Spock vaporizes rock",
			JustWon:      true,
		}
		json.NewEncoder(w).Encode(api.StateResponse{State: state, Status: state.Status()})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleGameState(context.Background(), callTool("game_state", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("game_state failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Game: ABCDE", "Round: 3", "you 2 - them 1", "Their play: rock", "Spock vaporizes rock", "You won"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_play(t *testing.T) {
	var got api.PlayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/play" {
			t.Errorf("Expected POST /api/play, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.PlayResponse{
			Accepted: true,
			Play:     protocol.Lizard,
			State:    engine.State{Round: 2, Locked: true},
		})
	}))
	defer server.Close()

	var logs bytes.Buffer
	client := NewClient(server.URL, WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))
	result, err := client.handlePlay(context.Background(), callTool("play", map[string]interface{}{
		"play":   "Lizard",
		"intent": "they keep throwing paper",
	}))
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if got.Play != "lizard" {
		t.Errorf("Expected normalized play lizard, got %q", got.Play)
	}
	if text := resultText(t, result); !strings.Contains(text, "Played lizard in round 2") {
		t.Errorf("Unexpected result: %s", text)
	}
	if !strings.Contains(logs.String(), `"intent":"they keep throwing paper"`) {
		t.Errorf("Expected intent in debug log, got %s", logs.String())
	}
}

func TestClient_playLocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.PlayResponse{Message: "a play is already outstanding; wait for the server"})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handlePlay(context.Background(), callTool("play", map[string]interface{}{"play": "rock"}))
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if result.IsError {
		t.Error("A locked play is not a tool error")
	}
	if text := resultText(t, result); !strings.Contains(text, "already outstanding") {
		t.Errorf("Unexpected result: %s", text)
	}
}

func TestClient_playInvalid(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	result, err := client.handlePlay(context.Background(), callTool("play", map[string]interface{}{"play": "well"}))
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if !result.IsError {
		t.Error("Expected a tool error for an unknown play")
	}
	if text := resultText(t, result); !strings.Contains(text, "rock, paper, scissors, lizard, spock") {
		t.Errorf("Expected the valid plays to be listed, got: %s", text)
	}
}

func TestClient_sessionInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(service.SessionInfo{
			UserID:      "user-1",
			GameID:      "ABCDE",
			ShareLink:   "http://localhost:3000/ABCDE",
			Joined:      true,
			Status:      service.StatusConnected,
			LockPolicy:  engine.ReleaseOnAnyPush,
			LockTimeout: "none",
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleSessionInfo(context.Background(), callTool("session_info", nil))
	if err != nil {
		t.Fatalf("session_info failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Share link: http://localhost:3000/ABCDE", "Mode: joined", "Connection: connected"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_gameInstructions(t *testing.T) {
	result, err := NewClient("http://localhost:0").handleGameInstructions(context.Background(), callTool("game_instructions", nil))
	if err != nil {
		t.Fatalf("game_instructions failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Spock smashes scissors") {
		t.Errorf("Expected rules in instructions, got: %s", text)
	}
}

func TestFormatGameState_Waiting(t *testing.T) {
	result := formatGameState(&engine.State{})

	if !strings.Contains(result, "(not assigned yet)") {
		t.Errorf("Expected unassigned game id, got: %s", result)
	}
	if !strings.Contains(result, engine.WaitingMessage) {
		t.Errorf("Expected waiting message, got: %s", result)
	}
}

func TestFormatGameState_Locked(t *testing.T) {
	result := formatGameState(&engine.State{GameID: "G", Locked: true, YourPlay: protocol.Paper})

	if !strings.Contains(result, "plays are locked") {
		t.Errorf("Expected lock notice, got: %s", result)
	}
	if !strings.Contains(result, "Your play: paper") {
		t.Errorf("Expected own play, got: %s", result)
	}
}
