// Package config loads and validates the daemon configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/tobyns/focusgate/internal/version"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

const (
	DefaultPort = 7439

	DefaultWorkMinutes            = 25
	DefaultBreakMinutes           = 5
	DefaultLongBreakMinutes       = 15
	DefaultSessionsUntilLongBreak = 4

	// Store backends.
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// Config represents the daemon configuration.
type Config struct {
	ConfigVersion string            `json:"config_version,omitempty"`
	Port          int               `json:"port,omitempty"`
	StoreBackend  string            `json:"store_backend,omitempty"` // "json" (default) or "sqlite"
	Pomodoro      *PomodoroDefaults `json:"pomodoro,omitempty"`

	// path is the file path this config was loaded from or should be saved
	// to. Unexported, so never serialized.
	path string
}

// PomodoroDefaults are the durations used when a pomodoro start does not
// override them.
type PomodoroDefaults struct {
	WorkMinutes            int `json:"work_minutes"`
	BreakMinutes           int `json:"break_minutes"`
	LongBreakMinutes       int `json:"long_break_minutes"`
	SessionsUntilLongBreak int `json:"sessions_until_long_break"`
}

// Dir returns the focusgate data directory (~/.focusgate).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".focusgate"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// CreateDefault returns a config with all defaults applied and the given path.
func CreateDefault(path string) *Config {
	cfg := &Config{
		ConfigVersion: version.ConfigVersion,
		path:          path,
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config from the default path.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from path, applies defaults, and validates.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to its path.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config path is empty, cannot save")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the file path this config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// StatePath returns the JSON store path inside the data directory.
func (c *Config) StatePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// DBPath returns the sqlite store path inside the data directory.
func (c *Config) DBPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "focusgate.db"), nil
}

func (c *Config) applyDefaults() {
	if c.ConfigVersion == "" {
		c.ConfigVersion = version.ConfigVersion
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.StoreBackend == "" {
		c.StoreBackend = StoreBackendJSON
	}
	if c.Pomodoro == nil {
		c.Pomodoro = &PomodoroDefaults{}
	}
	if c.Pomodoro.WorkMinutes == 0 {
		c.Pomodoro.WorkMinutes = DefaultWorkMinutes
	}
	if c.Pomodoro.BreakMinutes == 0 {
		c.Pomodoro.BreakMinutes = DefaultBreakMinutes
	}
	if c.Pomodoro.LongBreakMinutes == 0 {
		c.Pomodoro.LongBreakMinutes = DefaultLongBreakMinutes
	}
	if c.Pomodoro.SessionsUntilLongBreak == 0 {
		c.Pomodoro.SessionsUntilLongBreak = DefaultSessionsUntilLongBreak
	}
}

// Validate checks field ranges and config version compatibility.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.StoreBackend != StoreBackendJSON && c.StoreBackend != StoreBackendSQLite {
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.Pomodoro.WorkMinutes <= 0 || c.Pomodoro.BreakMinutes <= 0 || c.Pomodoro.LongBreakMinutes <= 0 {
		return fmt.Errorf("%w: pomodoro durations must be positive", ErrInvalidConfig)
	}
	if c.Pomodoro.SessionsUntilLongBreak <= 0 {
		return fmt.Errorf("%w: sessions_until_long_break must be positive", ErrInvalidConfig)
	}
	return c.checkVersion()
}

// checkVersion rejects config files written by a newer major config format.
func (c *Config) checkVersion() error {
	fileVer, err := semver.NewVersion(c.ConfigVersion)
	if err != nil {
		return fmt.Errorf("%w: bad config_version %q: %v", ErrInvalidConfig, c.ConfigVersion, err)
	}
	supported, err := semver.NewVersion(version.ConfigVersion)
	if err != nil {
		return fmt.Errorf("failed to parse supported config version: %w", err)
	}
	if fileVer.Major() > supported.Major() {
		return fmt.Errorf("%w: config_version %s requires a newer focusgate (supports %s)",
			ErrInvalidConfig, c.ConfigVersion, version.ConfigVersion)
	}
	return nil
}

// ConfigExists reports whether the default config file exists.
func ConfigExists() bool {
	path, err := DefaultPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// EnsureExists creates a default config at the default path if none exists.
// Returns true if the file was created.
//
// Note: there is a TOCTOU race between ConfigExists and Save. If another
// process creates the config between the check and the save, it is
// overwritten. Acceptable for a first-run flow where racing is unlikely.
func EnsureExists() (created bool, err error) {
	if ConfigExists() {
		return false, nil
	}
	path, err := DefaultPath()
	if err != nil {
		return false, err
	}
	cfg := CreateDefault(path)
	if err := cfg.Save(); err != nil {
		return false, fmt.Errorf("failed to save default config: %w", err)
	}
	fmt.Printf("[config] created at %s\n", path)
	return true, nil
}
