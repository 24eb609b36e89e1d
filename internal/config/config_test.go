package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.ListenAddr != ":5000" {
		t.Errorf("unexpected default listen addr %q", cfg.Server.ListenAddr)
	}
	if cfg.Simulation.Speed != 1.0 {
		t.Errorf("unexpected default speed %v", cfg.Simulation.Speed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DatabasePath != "data/stride.db" {
		t.Errorf("expected default database path, got %q", cfg.Storage.DatabasePath)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stride.yaml")
	content := []byte("server:\n  listen_addr: \":8080\"\nsimulation:\n  speed: 5.0\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr not applied, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Simulation.Speed != 5.0 {
		t.Errorf("speed not applied, got %v", cfg.Simulation.Speed)
	}
	// Untouched sections keep their defaults.
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("default model lost, got %q", cfg.LLM.Model)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stride.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stride.yaml")
	cfg := DefaultConfig()
	cfg.Server.ListenAddr = ":9999"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.ListenAddr != ":9999" {
		t.Errorf("round trip lost listen_addr, got %q", loaded.Server.ListenAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"EmptyListenAddr", func(c *Config) { c.Server.ListenAddr = "" }, true},
		{"ZeroSpeed", func(c *Config) { c.Simulation.Speed = 0 }, true},
		{"BadPollInterval", func(c *Config) { c.Simulation.PollInterval = "fast" }, true},
		{"UnknownProvider", func(c *Config) { c.LLM.Provider = "oracle" }, true},
		{"EmptyProvider", func(c *Config) { c.LLM.Provider = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetPollInterval(); got != 100*time.Millisecond {
		t.Errorf("GetPollInterval() = %v", got)
	}
	cfg.Simulation.PollInterval = "garbage"
	if got := cfg.GetPollInterval(); got != 100*time.Millisecond {
		t.Errorf("bad interval must fall back to default, got %v", got)
	}
	cfg.LLM.Timeout = "30s"
	if got := cfg.GetLLMTimeout(); got != 30*time.Second {
		t.Errorf("GetLLMTimeout() = %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("STRIDE_LISTEN_ADDR", ":7777")
	t.Setenv("STRIDE_DB", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-openai" || cfg.LLM.Provider != "openai" {
		t.Errorf("OPENAI_API_KEY override not applied: %+v", cfg.LLM)
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("STRIDE_LISTEN_ADDR not applied, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Storage.DatabasePath != "/tmp/override.db" {
		t.Errorf("STRIDE_DB not applied, got %q", cfg.Storage.DatabasePath)
	}
}

func TestEnvKeyPrecedence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("STRIDE_LLM_API_KEY", "explicit-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "explicit-key" {
		t.Errorf("STRIDE_LLM_API_KEY must win, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("provider should follow GEMINI_API_KEY, got %q", cfg.LLM.Provider)
	}
}
