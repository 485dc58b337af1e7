package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port '8080', got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Expected default read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Registry.Path != "configs/models.yaml" {
		t.Errorf("Expected default registry path, got %s", cfg.Registry.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected default logging config: %+v", cfg.Logging)
	}
	if cfg.Engine.Retrieval.TopK != 5 {
		t.Errorf("Expected default retrieval top_k 5, got %d", cfg.Engine.Retrieval.TopK)
	}
	if cfg.Engine.Execution.RequestBudget != 2*time.Minute {
		t.Errorf("Expected default request budget 2m, got %v", cfg.Engine.Execution.RequestBudget)
	}
	if w := cfg.Engine.Scoring.Weights; w.Capability != 0.4 || w.Cost != 0.2 {
		t.Errorf("Unexpected default scoring weights: %+v", w)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	content := `
server:
  port: "9090"
  read_timeout: 10s
registry:
  path: /etc/routing/models.yaml
engine:
  retrieval:
    top_k: 3
  scoring:
    weights:
      capability: 0.5
      cost: 0.3
      latency: 0.1
      quality: 0.1
logging:
  level: debug
  format: text
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Registry.Path != "/etc/routing/models.yaml" {
		t.Errorf("Expected overridden registry path, got %s", cfg.Registry.Path)
	}
	if cfg.Engine.Retrieval.TopK != 3 {
		t.Errorf("Expected top_k 3, got %d", cfg.Engine.Retrieval.TopK)
	}
	if cfg.Engine.Scoring.Weights.Capability != 0.5 {
		t.Errorf("Expected capability weight 0.5, got %v", cfg.Engine.Scoring.Weights.Capability)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
	// untouched sections keep defaults
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("Expected default write timeout to survive partial config, got %v", cfg.Server.WriteTimeout)
	}
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	os.Setenv("PORT", "7070")
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Setenv("MODEL_REGISTRY_PATH", "/tmp/models.yaml")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("MODEL_REGISTRY_PATH")
	}()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Expected env port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Providers.OpenAI == nil || cfg.Providers.OpenAI.APIKey != "test-openai-key" {
		t.Errorf("Expected OpenAI provider configured from env, got %+v", cfg.Providers.OpenAI)
	}
	if cfg.Providers.Anthropic != nil {
		t.Errorf("Anthropic provider should stay nil without a key, got %+v", cfg.Providers.Anthropic)
	}
	if cfg.Registry.Path != "/tmp/models.yaml" {
		t.Errorf("Expected env registry path, got %s", cfg.Registry.Path)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad scoring weights", `
engine:
  scoring:
    weights:
      capability: 0.9
      cost: 0.9
      latency: 0.0
      quality: 0.0
`},
		{"unknown log format", `
logging:
  format: xml
`},
		{"auth without credentials", `
security:
  require_auth: true
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected invalid config to be rejected")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestToServerConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	sc := cfg.ToServerConfig()
	if sc.Port != cfg.Server.Port {
		t.Errorf("port not carried over: %s", sc.Port)
	}
	if sc.RegistryPath != cfg.Registry.Path {
		t.Errorf("registry path not carried over: %s", sc.RegistryPath)
	}
	if sc.Security != &cfg.Security {
		t.Error("security config should alias the application config")
	}
}
