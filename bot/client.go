package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/rpsls/api"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
)

// Client talks to a running client's control API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetState returns the current game state
func (c *Client) GetState(ctx context.Context) (engine.State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/state", nil)
	if err != nil {
		return engine.State{}, fmt.Errorf("get state: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return engine.State{}, fmt.Errorf("get state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return engine.State{}, fmt.Errorf("get state failed: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var state api.StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return engine.State{}, fmt.Errorf("parse state: %w", err)
	}
	return state.State, nil
}

// Play submits play. A play refused because one is already outstanding, or
// because no game exists yet, is reported as not accepted rather than an
// error.
func (c *Client) Play(ctx context.Context, play protocol.Play) (bool, error) {
	body, err := json.Marshal(api.PlayRequest{Play: play.String()})
	if err != nil {
		return false, fmt.Errorf("marshal play: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/play", bytes.NewBuffer(body))
	if err != nil {
		return false, fmt.Errorf("play: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("play: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		data, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("play failed: %s - %s", resp.Status, strings.TrimSpace(string(data)))
	}
}
