package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models shopscout.yml.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Notify struct {
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"notify"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Sandbox struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"sandbox"`
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shopscout.yml")
}

// Load reads config from the workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config.api.timeout must be positive")
	}
	if c.Notify.PollInterval < time.Second {
		return fmt.Errorf("config.notify.poll_interval must be at least 1s")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q not recognized", c.Log.Level)
	}
	return nil
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	cfg.API.BaseURL = "http://127.0.0.1:8080/v1"
	cfg.API.Timeout = 10 * time.Second
	cfg.Notify.PollInterval = 30 * time.Second
	cfg.Log.Level = "info"
	cfg.Sandbox.Addr = "127.0.0.1:8080"
	cfg.Sandbox.BasePath = "/v1"
	return &cfg
}
