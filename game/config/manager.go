package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Info describes an available profile
type Info struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ServerURL   string `json:"server_url"`
}

// Manager handles profile loading and caching
type Manager struct {
	configDir      string
	defaultProfile *Profile
	configs        map[string]*Profile
	mu             sync.RWMutex
}

// NewManager creates a new configuration manager. A missing directory is
// not an error; only the built-in defaults are available then.
func NewManager(configDir string) (*Manager, error) {
	if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("config path is not a directory: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*Profile),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a profile by name
func (m *Manager) LoadConfig(name string) (*Profile, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if profile, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return profile, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*Profile, error) {
	// Double-check after acquiring write lock
	if profile, exists := m.configs[name]; exists {
		return profile, nil
	}

	profile, err := ReadProfile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		return nil, err
	}

	m.configs[name] = profile
	return profile, nil
}

// ReadProfile reads and validates one profile file. Unset fields take the
// built-in defaults.
func ReadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	profile := Defaults()
	profile.Name = ""
	profile.Description = ""
	if err := json.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ValidateProfile(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return profile, nil
}

// ListConfigs returns information about all valid profiles, sorted by id
func (m *Manager) ListConfigs() ([]*Info, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*Info

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")

		profile, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid profiles
			continue
		}

		infos = append(infos, &Info{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        profile.Name,
			Description: profile.Description,
			ServerURL:   profile.ServerURL,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ConfigID < infos[j].ConfigID })
	return infos, nil
}

// GetDefault returns the default profile
func (m *Manager) GetDefault() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultProfile
}

// Resolve returns the named profile, or the default when name is empty
func (m *Manager) Resolve(name string) (*Profile, error) {
	if name == "" || name == DefaultProfileName {
		return m.GetDefault(), nil
	}
	return m.LoadConfig(name)
}

// loadDefaultConfig loads default.json, falling back to the built-in
// profile when it is absent. A present but invalid default.json is an error.
func (m *Manager) loadDefaultConfig() error {
	profile, err := m.LoadConfig(DefaultProfileName)
	if errors.Is(err, ErrConfigNotFound) {
		profile = Defaults()
	} else if err != nil {
		return err
	}

	m.mu.Lock()
	m.defaultProfile = profile
	m.mu.Unlock()
	return nil
}

// SaveConfig validates and writes a profile to disk
func (m *Manager) SaveConfig(name string, profile *Profile) error {
	if err := ValidateProfile(profile); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	name = strings.TrimSuffix(name, ".json")

	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = profile
	m.mu.Unlock()

	return nil
}
