// Package config provides configuration management for parley projects.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ParleyDir is the directory name for parley metadata
	ParleyDir = ".parley"
	// ConfigFile is the filename for the parley configuration
	ConfigFile = "config.yaml"
)

// Manager handles parley configuration
type Manager struct {
	projectRoot string
	configPath  string
}

// NewManager creates a new configuration manager
func NewManager(projectRoot string) *Manager {
	return &Manager{
		projectRoot: projectRoot,
		configPath:  filepath.Join(projectRoot, ParleyDir, ConfigFile),
	}
}

// Load reads and validates the configuration from disk
func (m *Manager) Load() (*Config, error) {
	config, err := LoadWithValidation(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("parley not initialized. Run 'parley init' first")
		}
		return nil, err
	}

	applyDefaults(config)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads the configuration if the project is initialized and
// returns the defaults otherwise
func (m *Manager) LoadOrDefault() (*Config, error) {
	if !m.IsInitialized() {
		return DefaultConfig(), nil
	}
	return m.Load()
}

// Save writes the configuration to disk
func (m *Manager) Save(config *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// IsInitialized checks if parley has been initialized in the project
func (m *Manager) IsInitialized() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// GetProjectRoot returns the project root directory
func (m *Manager) GetProjectRoot() string {
	return m.projectRoot
}

// GetParleyDir returns the .parley directory path
func (m *Manager) GetParleyDir() string {
	return filepath.Join(m.projectRoot, ParleyDir)
}

// GetConfigPath returns the configuration file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetTranscriptDir resolves the transcript directory for cfg
func (m *Manager) GetTranscriptDir(cfg *Config) string {
	return m.resolve(cfg.Transcript.Dir, DefaultTranscriptDir)
}

// GetLogPath resolves the log file path for cfg
func (m *Manager) GetLogPath(cfg *Config) string {
	return m.resolve(cfg.Logging.File, DefaultLogFile)
}

func (m *Manager) resolve(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.GetParleyDir(), path)
}

// FindProjectRoot searches for the project root by looking for .parley/config.yaml
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ParleyDir, ConfigFile)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not in a parley project (no %s directory found)", ParleyDir)
}

// FindProjectRootOrCwd returns the enclosing project root, or the current
// directory when there is none
func FindProjectRootOrCwd() (string, error) {
	if root, err := FindProjectRoot(); err == nil {
		return root, nil
	}
	return os.Getwd()
}

// applyDefaults fills unset values from DefaultConfig
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Version == "" {
		cfg.Version = def.Version
	}

	conv := &cfg.Conversation
	if conv.ManualWaitTimeout == 0 {
		conv.ManualWaitTimeout = def.Conversation.ManualWaitTimeout
	}
	if conv.ReplyTimeout == 0 {
		conv.ReplyTimeout = def.Conversation.ReplyTimeout
	}
	if conv.ReplyAttempts == 0 {
		conv.ReplyAttempts = def.Conversation.ReplyAttempts
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = def.Logging.File
	}

	if cfg.Transcript.Dir == "" {
		cfg.Transcript.Dir = def.Transcript.Dir
	}

	if cfg.MCP.HTTP.Port == 0 {
		cfg.MCP.HTTP.Port = def.MCP.HTTP.Port
	}
}
