// Package cli manages named Partner API credential profiles for the
// command-line tool. Profiles live under ~/.config/openmoove/profiles/, one
// YAML file each, with the active selection in state.yaml.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configDirName = "openmoove"
	profilesDir   = "profiles"
	stateFile     = "state.yaml"
)

// Profile is a saved set of Partner API credentials.
type Profile struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // empty = production
}

// State holds the active profile selection.
type State struct {
	ActiveProfile string `yaml:"active_profile"`
}

// configDir returns the base config directory (~/.config/openmoove/).
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return filepath.Join(xdgConfig, configDirName), nil
}

func ensureConfigDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(dir, profilesDir), 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return dir, nil
}

// SaveProfile stores a profile, overwriting any existing one with the same
// name.
func SaveProfile(name, apiKey, baseURL string) (*Profile, error) {
	dir, err := ensureConfigDir()
	if err != nil {
		return nil, err
	}

	if apiKey == "" {
		return nil, fmt.Errorf("API key must not be empty")
	}

	profile := &Profile{
		Name:    sanitizeName(name),
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("profile name must not be empty")
	}

	data, err := yaml.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	path := filepath.Join(dir, profilesDir, profile.Name+".yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write profile: %w", err)
	}

	return profile, nil
}

// ListProfiles returns all saved profiles.
func ListProfiles() ([]Profile, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	pDir := filepath.Join(dir, profilesDir)
	entries, err := os.ReadDir(pDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profiles directory: %w", err)
	}

	var profiles []Profile
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(pDir, entry.Name()))
		if err != nil {
			continue
		}

		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// LoadProfile loads a profile by name.
func LoadProfile(name string) (*Profile, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, profilesDir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile %q not found: %w", name, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	return &p, nil
}

// DeleteProfile removes a saved profile.
func DeleteProfile(name string) error {
	dir, err := configDir()
	if err != nil {
		return err
	}

	os.Remove(filepath.Join(dir, profilesDir, name+".yaml"))

	// If this was the active profile, clear it.
	state, _ := loadState()
	if state != nil && state.ActiveProfile == name {
		state.ActiveProfile = ""
		saveState(state)
	}

	return nil
}

// SetActive sets the active profile.
func SetActive(name string) error {
	if _, err := LoadProfile(name); err != nil {
		return err
	}

	return saveState(&State{ActiveProfile: name})
}

// GetActive returns the currently active profile name.
func GetActive() (string, error) {
	state, err := loadState()
	if err != nil {
		return "", nil // no state file = no active profile
	}
	return state.ActiveProfile, nil
}

// ActiveProfile resolves the active profile, or the named one if name is
// non-empty.
func ActiveProfile(name string) (*Profile, error) {
	if name == "" {
		var err error
		name, err = GetActive()
		if err != nil || name == "" {
			return nil, fmt.Errorf("no profile specified and no active profile set")
		}
	}
	return LoadProfile(name)
}

func loadState() (*State, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		return nil, err
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func saveState(state *State) error {
	dir, err := ensureConfigDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, stateFile), data, 0600)
}

func sanitizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	return strings.Trim(name, "-")
}
