// Package config loads the service configuration from YAML with
// environment overrides for secrets and deploy-specific paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all stride configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Storage    StorageConfig    `yaml:"storage"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LLMConfig configures the coaching model client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// StorageConfig configures program persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SimulationConfig configures the activity replay.
type SimulationConfig struct {
	TelemetryCSV string  `yaml:"telemetry_csv"`
	PollInterval string  `yaml:"poll_interval"`
	Speed        float64 `yaml:"speed"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "stride",
		Version: "1.0.0",

		Server: ServerConfig{
			ListenAddr:      ":5000",
			ShutdownTimeout: "10s",
		},

		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},

		Storage: StorageConfig{
			DatabasePath: "data/stride.db",
		},

		Simulation: SimulationConfig{
			TelemetryCSV: "data/activity.csv",
			PollInterval: "100ms",
			Speed:        1.0,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Provider keys in priority order; STRIDE_LLM_API_KEY wins and keeps
	// whichever provider the file configured.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("STRIDE_LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	if addr := os.Getenv("STRIDE_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if path := os.Getenv("STRIDE_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if path := os.Getenv("STRIDE_TELEMETRY_CSV"); path != "" {
		c.Simulation.TelemetryCSV = path
	}
}

// Validate checks the fields that would only fail at runtime otherwise.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Simulation.Speed <= 0 {
		return fmt.Errorf("simulation.speed must be positive, got %v", c.Simulation.Speed)
	}
	if _, err := time.ParseDuration(c.Simulation.PollInterval); err != nil {
		return fmt.Errorf("simulation.poll_interval: %w", err)
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetPollInterval returns the clock poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Simulation.PollInterval)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetShutdownTimeout returns the graceful shutdown budget as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
