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

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/rescue-grid/game/engine"
	"github.com/wricardo/rescue-grid/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// scenarioExts are tried in order when resolving a scenario name
var scenarioExts = []string{".json", ".yaml", ".yml"}

// Manager handles scenario loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.ScenarioConfig
	configs       map[string]*engine.ScenarioConfig
	mu            sync.RWMutex
	log           *zap.Logger
}

// NewManager creates a new scenario manager
func NewManager(configDir string, log *zap.Logger) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}
	if log == nil {
		log = zap.NewNop()
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.ScenarioConfig),
		log:       log,
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// splitName strips a known extension from a scenario name
func splitName(name string) (base, ext string) {
	for _, e := range scenarioExts {
		if strings.HasSuffix(name, e) {
			return strings.TrimSuffix(name, e), e
		}
	}
	return name, ""
}

// resolve finds the file for a scenario name
func (m *Manager) resolve(name string) (string, error) {
	base, ext := splitName(name)
	if strings.ContainsAny(base, `/\`) || base == "" || base == "." || base == ".." {
		return "", fmt.Errorf("%w: bad scenario name %q", ErrConfigNotFound, name)
	}
	exts := scenarioExts
	if ext != "" {
		exts = []string{ext}
	}
	for _, e := range exts {
		path := filepath.Join(m.configDir, base+e)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadConfig loads a scenario by name, with or without extension
func (m *Manager) LoadConfig(name string) (*engine.ScenarioConfig, error) {
	key, _ := splitName(name)

	m.mu.RLock()
	if config, exists := m.configs[key]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[key]; exists {
		return config, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.ParseScenarioConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := engine.ValidateScenarioConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[key] = config
	return config, nil
}

// ListConfigs returns information about all valid scenarios, sorted by ID
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ext := splitName(entry.Name())
		if ext == "" || seen[name] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			m.log.Warn("skipping scenario", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		seen[name] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width(),
			Height:      config.Height(),
			Agents:      len(config.Agents),
			Victims:     len(config.Victims),
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *engine.ScenarioConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached scenarios and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.ScenarioConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig prefers classic, then the first valid scenario, then the built-in one
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig("classic")
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.setDefault(engine.DefaultScenario())
			return nil
		}

		config, err = m.LoadConfig(configs[0].Filename)
		if err != nil {
			m.setDefault(engine.DefaultScenario())
			return nil
		}
	}

	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.ScenarioConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// SaveConfig validates and writes a scenario. A .yaml or .yml suffix on
// name selects YAML; anything else is written as JSON.
func (m *Manager) SaveConfig(name string, config *engine.ScenarioConfig) error {
	if err := engine.ValidateScenarioConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	base, ext := splitName(name)
	if base == "" || strings.ContainsAny(base, `/\`) {
		return fmt.Errorf("%w: bad scenario name %q", ErrInvalidConfig, name)
	}
	if ext == "" {
		ext = ".json"
	}

	var (
		data []byte
		err  error
	)
	if ext == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, base+ext)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[base] = config
	m.mu.Unlock()

	m.log.Info("scenario saved", zap.String("name", base), zap.String("path", configPath))
	return nil
}

// Count returns the number of cached scenarios
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
