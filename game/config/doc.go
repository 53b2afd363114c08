// Package config provides profile management for the RPSLS client.
//
// The config package handles:
//   - Loading named client profiles from JSON files
//   - Profile validation
//   - Default profile management with built-in fallback
//   - Profile discovery and listing
//
// Profile Format:
//
// Profiles are stored as JSON files in the configs directory. Each profile
// defines:
//   - server_url: the game server websocket endpoint (ws or wss)
//   - share_base_url: the address whose path carries the game id
//   - data_dir: where identity.json is kept
//   - lock_policy and lock_timeout: when an outstanding play is released
//   - write_wait, pong_wait, ping_period, send_buffer: connection tuning
//
// Durations are written as Go duration strings ("10s", "1m30s"); plain
// numbers are read as seconds. Fields left out take the built-in values.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		return err
//	}
//
//	// Load a specific profile
//	profile, err := manager.LoadConfig("local")
//
//	// default.json if present, otherwise the built-in profile
//	profile = manager.GetDefault()
//
//	// List available profiles
//	infos, err := manager.ListConfigs()
//
//	// Write a profile as configs/lan.json
//	err = manager.SaveConfig("lan", profile)
//
// Validation:
//
// ValidateProfile reports every problem at once: missing name, a server URL
// that is not ws/wss, a share URL that is not an absolute http(s) origin, an
// unknown lock policy, negative durations, and a ping period not shorter than
// a non-zero pong wait.
package config
