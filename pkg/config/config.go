// Package config holds the application configuration for questpilot: the
// target host to automate, where quest and selector definitions live, and
// runtime tuning. Loaded from YAML; user-mutable settings live in a
// separate JSON store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// as well as raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the full questpilot configuration.
type Config struct {
	// Target describes the host application and its assistant widget.
	Target TargetConfig `yaml:"target" json:"target"`

	// Quests points at the quest library and selector map files.
	Quests QuestConfig `yaml:"quests" json:"quests"`

	// Storage configures the progress store.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Bridge configures the cross-frame channel.
	Bridge BridgeConfig `yaml:"bridge" json:"bridge"`

	// Mode selects demo or real execution.
	Mode string `yaml:"mode" json:"mode"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TargetConfig identifies the host page and the widget frame inside it.
type TargetConfig struct {
	// URL is the host application page to open.
	URL string `yaml:"url" json:"url"`

	// FrameURLPattern matches the assistant widget's iframe URL.
	FrameURLPattern string `yaml:"frame_url_pattern" json:"frame_url_pattern"`

	// OpenerSelector is the host-page control that opens the assistant.
	OpenerSelector string `yaml:"opener_selector" json:"opener_selector"`

	// CloserSelector is the host-page control that closes it. Optional;
	// the opener is toggled when absent.
	CloserSelector string `yaml:"closer_selector" json:"closer_selector"`
}

// QuestConfig locates the quest definitions.
type QuestConfig struct {
	LibraryPath  string `yaml:"library_path" json:"library_path"`
	SelectorPath string `yaml:"selector_path" json:"selector_path"`

	// SubAppFilter scopes progress queries, e.g. "payroll*". Empty means
	// all sub-apps.
	SubAppFilter string `yaml:"sub_app_filter" json:"sub_app_filter"`
}

// StorageConfig configures the SQLite progress store.
type StorageConfig struct {
	// Path is the database file; empty uses ~/.questpilot/progress.db.
	Path string `yaml:"path" json:"path"`
}

// BridgeConfig configures the message channel between page and widget.
type BridgeConfig struct {
	// ListenAddr, when set, serves the widget bridge over a websocket
	// instead of the in-process channel pair.
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// AllowedOrigins are the origins accepted on the websocket channel.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// ResponseTimeout bounds how long a step waits for an assistant reply.
	ResponseTimeout Duration `yaml:"response_timeout" json:"response_timeout"`
}

// LoggingConfig defines logging configuration.
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// DefaultConfig returns a configuration suitable for local demo runs.
func DefaultConfig() *Config {
	return &Config{
		Mode: "demo",
		Bridge: BridgeConfig{
			ResponseTimeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// Load reads and validates a YAML config file, applying defaults for
// unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Target.URL == "" {
		return fmt.Errorf("target url is required")
	}
	if c.Target.OpenerSelector == "" {
		return fmt.Errorf("target opener_selector is required")
	}
	if c.Quests.LibraryPath == "" {
		return fmt.Errorf("quest library_path is required")
	}
	if c.Quests.SelectorPath == "" {
		return fmt.Errorf("quest selector_path is required")
	}

	if c.Mode == "" {
		c.Mode = "demo"
	}
	if c.Mode != "demo" && c.Mode != "real" {
		return fmt.Errorf("invalid mode: %s (must be 'demo' or 'real')", c.Mode)
	}

	if c.Bridge.ResponseTimeout < 0 {
		return fmt.Errorf("response_timeout cannot be negative")
	}
	if c.Bridge.ResponseTimeout == 0 {
		c.Bridge.ResponseTimeout = Duration(30 * time.Second)
	}
	if c.Bridge.ListenAddr != "" && len(c.Bridge.AllowedOrigins) == 0 {
		return fmt.Errorf("bridge listen_addr requires allowed_origins")
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// StoragePath resolves the progress database path, defaulting to
// ~/.questpilot/progress.db.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".questpilot", "progress.db"), nil
}
