package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wricardo/rpsls/game/engine"
)

const (
	DefaultProfileName  = "default"
	DefaultServerURL    = "wss://cbwfvjy7j8.execute-api.us-west-2.amazonaws.com/Prod"
	DefaultShareBaseURL = "http://localhost:3000/"
	DefaultDataDir      = ".rpsls"
)

// Duration is a time.Duration that reads and writes as "10s" in JSON.
// Plain numbers are taken as seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(value * float64(time.Second))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	case nil:
		*d = 0
		return nil
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Profile is one named client configuration
type Profile struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// ServerURL is the game server websocket endpoint
	ServerURL string `json:"server_url"`

	// ShareBaseURL is the navigable address whose path carries the game id
	ShareBaseURL string `json:"share_base_url,omitempty"`

	DataDir string `json:"data_dir,omitempty"`

	LockPolicy  string   `json:"lock_policy,omitempty"`
	LockTimeout Duration `json:"lock_timeout,omitempty"`

	WriteWait  Duration `json:"write_wait,omitempty"`
	PongWait   Duration `json:"pong_wait,omitempty"`
	PingPeriod Duration `json:"ping_period,omitempty"`
	SendBuffer int      `json:"send_buffer,omitempty"`
}

// Defaults returns the built-in profile
func Defaults() *Profile {
	return &Profile{
		Name:         DefaultProfileName,
		Description:  "Public RPSLS server",
		ServerURL:    DefaultServerURL,
		ShareBaseURL: DefaultShareBaseURL,
		DataDir:      DefaultDataDir,
		LockPolicy:   string(engine.ReleaseOnAnyPush),
		WriteWait:    Duration(10 * time.Second),
		PingPeriod:   Duration(54 * time.Second),
		SendBuffer:   16,
	}
}

// Policy returns the parsed lock policy
func (p *Profile) Policy() engine.LockPolicy {
	policy, err := engine.ParseLockPolicy(p.LockPolicy)
	if err != nil {
		return engine.ReleaseOnAnyPush
	}
	return policy
}

// ValidateProfile checks a profile for errors, returning all of them joined
func ValidateProfile(p *Profile) error {
	if p == nil {
		return errors.New("profile is nil")
	}

	var errs []error

	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	if p.ServerURL == "" {
		errs = append(errs, errors.New("server_url is required"))
	} else if u, err := url.Parse(p.ServerURL); err != nil {
		errs = append(errs, fmt.Errorf("server_url: %w", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("server_url must use ws or wss, got %q", u.Scheme))
	} else if u.Host == "" {
		errs = append(errs, errors.New("server_url has no host"))
	}

	if p.ShareBaseURL != "" {
		if u, err := url.Parse(p.ShareBaseURL); err != nil {
			errs = append(errs, fmt.Errorf("share_base_url: %w", err))
		} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("share_base_url must be an absolute http(s) URL, got %q", p.ShareBaseURL))
		} else if u.Path != "" && u.Path != "/" {
			// The first path segment is read as the game id
			errs = append(errs, fmt.Errorf("share_base_url cannot have a path, got %q", u.Path))
		}
	}

	if _, err := engine.ParseLockPolicy(p.LockPolicy); err != nil {
		errs = append(errs, fmt.Errorf("lock_policy: %w", err))
	}

	for name, d := range map[string]Duration{
		"lock_timeout": p.LockTimeout,
		"write_wait":   p.WriteWait,
		"pong_wait":    p.PongWait,
		"ping_period":  p.PingPeriod,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", name))
		}
	}

	if p.PongWait > 0 && p.PingPeriod >= p.PongWait {
		errs = append(errs, errors.New("ping_period must be shorter than pong_wait"))
	}

	if p.SendBuffer < 0 {
		errs = append(errs, errors.New("send_buffer cannot be negative"))
	}

	return errors.Join(errs...)
}
