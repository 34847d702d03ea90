package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings are the user-mutable preferences that survive restarts,
// separate from the operator-owned YAML config.
type Settings struct {
	// Mode is the user's last chosen execution mode.
	Mode string `json:"mode,omitempty"`

	// LastQuestID is the most recently started quest.
	LastQuestID string `json:"last_quest_id,omitempty"`

	// SubAppFilter overrides the configured progress scope.
	SubAppFilter string `json:"sub_app_filter,omitempty"`
}

// SettingsStore persists Settings as a JSON file with atomic writes.
type SettingsStore struct {
	path     string
	settings Settings
	mu       sync.RWMutex
}

// NewSettingsStore creates a settings store at path. If path is empty,
// defaults to ~/.questpilot/settings.json. An existing file is loaded;
// a missing one starts empty.
func NewSettingsStore(path string) (*SettingsStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".questpilot", "settings.json")
	}

	store := &SettingsStore{path: path}
	if err := store.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}
	return store, nil
}

// Load loads the settings from disk.
func (s *SettingsStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.settings = Settings{}
			return nil
		}
		return fmt.Errorf("failed to open settings file: %w", err)
	}
	defer file.Close()

	var settings Settings
	if err := json.NewDecoder(file).Decode(&settings); err != nil {
		return fmt.Errorf("failed to decode settings file: %w", err)
	}
	s.settings = settings
	return nil
}

// Save writes the settings to disk via a temp file and rename so a crash
// mid-write never leaves a truncated file.
func (s *SettingsStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.settings); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Set replaces the settings in memory; Save persists them.
func (s *SettingsStore) Set(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// Path returns the file path of the store.
func (s *SettingsStore) Path() string {
	return s.path
}
