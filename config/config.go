package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the docchat configuration
type Config struct {
	BackendURL     string `json:"backend_url"`     // Base URL of the inference backend
	TimeoutSeconds int    `json:"timeout_seconds"` // Per-request backend timeout
	SourcesDir     string `json:"sources_dir"`     // Directory scanned for PDF sources
	LogFile        string `json:"log_file"`        // Structured log destination
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		BackendURL:     "http://localhost:8000",
		TimeoutSeconds: 60,
		SourcesDir:     ".",
		LogFile:        filepath.Join(home, ".docchat", "docchat.log"),
	}
}

// LoadConfig loads configuration in layers: defaults, then the global config
// file, then .env / environment variables (which win, matching how the
// backend address is configured in deployments).
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if fileCfg, err := loadGlobalConfig(); err == nil {
		mergeCfg(cfg, fileCfg)
	}

	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()
	applyEnv(cfg)

	return cfg, nil
}

// Timeout returns the backend request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Get retrieves a configuration value by key
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "backend_url":
		return c.BackendURL, nil
	case "timeout_seconds":
		return c.TimeoutSeconds, nil
	case "sources_dir":
		return c.SourcesDir, nil
	case "log_file":
		return c.LogFile, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value by key
func (c *Config) Set(key string, value interface{}) error {
	// Convert value to string (CLI input is always string)
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string value for %s", key)
	}

	switch key {
	case "backend_url":
		c.BackendURL = str
		return nil
	case "timeout_seconds":
		val, err := strconv.Atoi(str)
		if err != nil || val <= 0 {
			return fmt.Errorf("expected positive numeric value for timeout_seconds, got: %s", str)
		}
		c.TimeoutSeconds = val
		return nil
	case "sources_dir":
		c.SourcesDir = str
		return nil
	case "log_file":
		c.LogFile = str
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

// applyEnv overrides config fields from DOCCHAT_* environment variables
func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCCHAT_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("DOCCHAT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("DOCCHAT_SOURCES_DIR"); v != "" {
		cfg.SourcesDir = v
	}
	if v := os.Getenv("DOCCHAT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

// loadGlobalConfig loads configuration from ~/.docchat/config.json
func loadGlobalConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return loadConfigFromFile(filepath.Join(homeDir, ".docchat", "config.json"))
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveGlobalConfig saves configuration to ~/.docchat/config.json
func SaveGlobalConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(homeDir, ".docchat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// mergeCfg merges source config into destination config
func mergeCfg(dst, src *Config) {
	if src.BackendURL != "" {
		dst.BackendURL = src.BackendURL
	}
	if src.TimeoutSeconds > 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.SourcesDir != "" {
		dst.SourcesDir = src.SourcesDir
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
}
