package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/rescue-grid/game/pathfind"
)

// Settings is the server configuration
type Settings struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	ConfigDir   string `yaml:"config_dir"`
	SessionsDir string `yaml:"sessions_dir"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	// Search is applied to scenarios that do not set their own options.
	Search pathfind.Options `yaml:"search"`

	Sessions struct {
		Retention       time.Duration `yaml:"retention"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
		PlanWorkers     int           `yaml:"plan_workers"`
	} `yaml:"sessions"`
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	s := &Settings{}
	s.Server.Host = ""
	s.Server.Port = 8080
	s.ConfigDir = "configs"
	s.SessionsDir = "sessions"
	s.Log.Level = "info"
	s.Sessions.Retention = 24 * time.Hour
	s.Sessions.CleanupInterval = time.Hour
	s.Sessions.PlanWorkers = 4
	return s
}

// LoadSettings applies defaults < file < environment. An empty path skips the
// file; a missing file at an explicit path is an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading settings from %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("loading settings from %s: %w", path, err)
		}
	}

	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEnv overrides settings from environment variables
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("RESCUE_HOST"); ok {
		s.Server.Host = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		s.Server.Port = port
	}
	if v, ok := lookup("CONFIG_DIR"); ok && v != "" {
		s.ConfigDir = v
	}
	if v, ok := lookup("SESSIONS_DIR"); ok && v != "" {
		s.SessionsDir = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		s.Log.Level = v
	}
	if v, ok := lookup("LOG_FILE"); ok {
		s.Log.File = v
	}
	return nil
}

// Validate checks value ranges
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("settings: port must be between 0 and 65535, got %d", s.Server.Port)
	}
	if s.Search.MaxNodes < 0 {
		return fmt.Errorf("settings: search.max_nodes must not be negative, got %d", s.Search.MaxNodes)
	}
	if s.Sessions.Retention < 0 || s.Sessions.CleanupInterval < 0 {
		return fmt.Errorf("settings: session durations must not be negative")
	}
	if s.Sessions.PlanWorkers < 0 {
		return fmt.Errorf("settings: sessions.plan_workers must not be negative, got %d", s.Sessions.PlanWorkers)
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
