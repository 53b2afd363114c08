package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/rpsls/game/config"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/session"
	"github.com/wricardo/rpsls/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "rpsls" {
		t.Errorf("Expected app name rpsls, got %s", AppName)
	}
}

func TestShareAddress(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		join   string
		want   string
		gameID string
	}{
		{"new game", "http://localhost:3000/", "", "http://localhost:3000/", ""},
		{"bare id", "http://localhost:3000/", "ABCDE", "http://localhost:3000/ABCDE", "ABCDE"},
		{"id with slashes", "http://localhost:3000/", "/ABCDE/", "http://localhost:3000/ABCDE", "ABCDE"},
		{"full link", "http://localhost:3000/", "https://rpsls.example.com/XYZ", "https://rpsls.example.com/XYZ", "XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := shareAddress(tt.base, tt.join)
			if err != nil {
				t.Fatalf("shareAddress failed: %v", err)
			}
			if addr.String() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, addr.String())
			}
			if got := session.NewResolver(addr).GameID(); got != tt.gameID {
				t.Errorf("Expected game id %q, got %q", tt.gameID, got)
			}
		})
	}
}

func TestShareAddress_Invalid(t *testing.T) {
	if _, err := shareAddress("http://localhost:3000/", "a/b"); !errors.Is(err, session.ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress for a nested id, got %v", err)
	}
	if _, err := shareAddress("ftp://localhost/", ""); !errors.Is(err, session.ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress for a non-http base, got %v", err)
	}
	if _, err := shareAddress("https://games.example.com/rpsls/", ""); !errors.Is(err, session.ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress for a base with a path, got %v", err)
	}
}

// captureProfile runs the root flags against args and returns the profile
// loadProfile resolves
func captureProfile(t *testing.T, args ...string) (*config.Profile, error) {
	t.Helper()

	var profile *config.Profile
	var loadErr error
	cmd := &cli.Command{
		Name:  "test",
		Flags: newApp().Flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			profile, loadErr = loadProfile(cmd)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), append([]string{"test"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return profile, loadErr
}

func TestLoadProfile_Defaults(t *testing.T) {
	profile, err := captureProfile(t, "--config-dir", filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("loadProfile failed: %v", err)
	}

	if profile.ServerURL != config.DefaultServerURL {
		t.Errorf("Expected default server, got %s", profile.ServerURL)
	}
	if profile.Policy() != engine.ReleaseOnAnyPush {
		t.Errorf("Expected any policy, got %s", profile.Policy())
	}
}

func TestLoadProfile_NamedProfile(t *testing.T) {
	profile, err := captureProfile(t, "--config-dir", "configs", "--profile", "local")
	if err != nil {
		t.Fatalf("loadProfile failed: %v", err)
	}

	if profile.ServerURL != "ws://localhost:8080/ws" {
		t.Errorf("Expected local server, got %s", profile.ServerURL)
	}
	if profile.Policy() != engine.ReleaseOnRoundAdvance {
		t.Errorf("Expected round policy, got %s", profile.Policy())
	}
}

func TestLoadProfile_Overrides(t *testing.T) {
	dataDir := t.TempDir()
	profile, err := captureProfile(t,
		"--config-dir", "configs",
		"--profile", "local",
		"--server-url", "wss://example.com/Prod",
		"--share-url", "https://play.example.com/",
		"--data-dir", dataDir,
		"--lock-policy", "any",
		"--lock-timeout", "5s",
	)
	if err != nil {
		t.Fatalf("loadProfile failed: %v", err)
	}

	if profile.ServerURL != "wss://example.com/Prod" {
		t.Errorf("Expected overridden server, got %s", profile.ServerURL)
	}
	if profile.ShareBaseURL != "https://play.example.com/" {
		t.Errorf("Expected overridden share url, got %s", profile.ShareBaseURL)
	}
	if profile.DataDir != dataDir {
		t.Errorf("Expected overridden data dir, got %s", profile.DataDir)
	}
	if profile.Policy() != engine.ReleaseOnAnyPush {
		t.Errorf("Expected any policy, got %s", profile.Policy())
	}
	if profile.LockTimeout.Std() != 5*time.Second {
		t.Errorf("Expected 5s lock timeout, got %s", profile.LockTimeout.Std())
	}
}

func TestLoadProfile_InvalidOverride(t *testing.T) {
	_, err := captureProfile(t, "--config-dir", "configs", "--lock-policy", "never")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	_, err = captureProfile(t, "--config-dir", "configs", "--share-url", "https://games.example.com/rpsls/")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a share url with a path, got %v", err)
	}

	_, err = captureProfile(t, "--config-dir", "configs", "--server-url", "http://example.com")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a non-websocket server, got %v", err)
	}
}

func TestLoadProfile_UnknownProfile(t *testing.T) {
	_, err := captureProfile(t, "--config-dir", "configs", "--profile", "nope")
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{AppName}, args...))
	return out.String(), err
}

func TestWhoami_Persists(t *testing.T) {
	dataDir := t.TempDir()
	configDir := filepath.Join(t.TempDir(), "missing")

	first, err := runApp(t, "--config-dir", configDir, "--data-dir", dataDir, "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	second, err := runApp(t, "--config-dir", configDir, "--data-dir", dataDir, "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}

	if strings.TrimSpace(first) == "" {
		t.Fatal("Expected a user id")
	}
	if first != second {
		t.Errorf("Expected the same id twice, got %q and %q", first, second)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "identity.json")); err != nil {
		t.Errorf("Expected identity file in data dir: %v", err)
	}
}

func TestWhoami_Ephemeral(t *testing.T) {
	dataDir := t.TempDir()
	configDir := filepath.Join(t.TempDir(), "missing")

	first, err := runApp(t, "--config-dir", configDir, "--data-dir", dataDir, "--ephemeral", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	second, err := runApp(t, "--config-dir", configDir, "--data-dir", dataDir, "--ephemeral", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}

	if first == second {
		t.Error("Expected a fresh id on every ephemeral run")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "identity.json")); !os.IsNotExist(err) {
		t.Error("Expected no identity file for an ephemeral id")
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := runApp(t, "validate", "configs")
	if err != nil {
		t.Fatalf("Expected repository profiles to be valid: %v\n%s", err, out)
	}
	if !strings.Contains(out, "local.json") {
		t.Errorf("Expected local.json in report, got:\n%s", out)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"name": "bad", "server_url": "http://x"}`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err = runApp(t, "validate", dir)
	if !errors.Is(err, errInvalidProfiles) {
		t.Errorf("Expected errInvalidProfiles, got %v", err)
	}
	if !strings.Contains(out, "INVALID") {
		t.Errorf("Expected INVALID in report, got:\n%s", out)
	}
}

func TestProfilesCommand(t *testing.T) {
	configDir := t.TempDir()

	out, err := runApp(t, "--config-dir", configDir, "profiles")
	if err != nil {
		t.Fatalf("profiles failed: %v", err)
	}
	if !strings.Contains(out, "built-in default") {
		t.Errorf("Expected built-in default notice, got:\n%s", out)
	}

	_, err = runApp(t, "--config-dir", configDir,
		"--server-url", "ws://192.168.1.20:9000/ws",
		"--lock-policy", "round",
		"profiles", "save", "lan")
	if err != nil {
		t.Fatalf("profiles save failed: %v", err)
	}

	out, err = runApp(t, "--config-dir", configDir, "profiles", "list")
	if err != nil {
		t.Fatalf("profiles list failed: %v", err)
	}
	if !strings.Contains(out, "lan") || !strings.Contains(out, "ws://192.168.1.20:9000/ws") {
		t.Errorf("Expected saved profile in listing, got:\n%s", out)
	}

	profile, err := captureProfile(t, "--config-dir", configDir, "--profile", "lan")
	if err != nil {
		t.Fatalf("Failed to load saved profile: %v", err)
	}
	if profile.ServerURL != "ws://192.168.1.20:9000/ws" {
		t.Errorf("Expected saved server url, got %s", profile.ServerURL)
	}
	if profile.Policy() != engine.ReleaseOnRoundAdvance {
		t.Errorf("Expected round policy, got %s", profile.Policy())
	}
}

func TestProfilesSave_Invalid(t *testing.T) {
	configDir := t.TempDir()

	if _, err := runApp(t, "--config-dir", configDir, "profiles", "save"); err == nil {
		t.Error("Expected an error without a name")
	}
	if _, err := runApp(t, "--config-dir", configDir, "profiles", "save", "../escape"); err == nil {
		t.Error("Expected an error for a name with a path")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(configDir), "escape.json")); !os.IsNotExist(err) {
		t.Error("Expected nothing written outside the config dir")
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:0"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":1`) {
		t.Errorf("Expected the request id echoed, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("Expected no error, got %s", rec.Body.String())
	}
}
