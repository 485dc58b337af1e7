package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tributary-ai/routing-engine/internal/analyzer"
	"github.com/tributary-ai/routing-engine/internal/execution"
	"github.com/tributary-ai/routing-engine/internal/providers/anthropic"
	"github.com/tributary-ai/routing-engine/internal/providers/openai"
	"github.com/tributary-ai/routing-engine/internal/registry"
	"github.com/tributary-ai/routing-engine/internal/retrieval"
	"github.com/tributary-ai/routing-engine/internal/scoring"
	"github.com/tributary-ai/routing-engine/internal/security"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Registry  RegistryConfig  `yaml:"registry"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  security.Config `yaml:"security"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	OpenAPISpec    string        `yaml:"openapi_spec"`
	ValidateSpec   bool          `yaml:"validate_spec"`
}

// UnmarshalYAML accepts timeouts in time.ParseDuration notation ("30s").
func (s *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	// Pre-seed with current values so absent keys keep their defaults.
	raw := struct {
		Port           string `yaml:"port"`
		ReadTimeout    string `yaml:"read_timeout"`
		WriteTimeout   string `yaml:"write_timeout"`
		MaxHeaderBytes int    `yaml:"max_header_bytes"`
		OpenAPISpec    string `yaml:"openapi_spec"`
		ValidateSpec   bool   `yaml:"validate_spec"`
	}{
		Port:           s.Port,
		MaxHeaderBytes: s.MaxHeaderBytes,
		OpenAPISpec:    s.OpenAPISpec,
		ValidateSpec:   s.ValidateSpec,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.Port = raw.Port
	s.MaxHeaderBytes = raw.MaxHeaderBytes
	s.OpenAPISpec = raw.OpenAPISpec
	s.ValidateSpec = raw.ValidateSpec
	if raw.ReadTimeout != "" {
		d, err := time.ParseDuration(raw.ReadTimeout)
		if err != nil {
			return fmt.Errorf("read_timeout: %w", err)
		}
		s.ReadTimeout = d
	}
	if raw.WriteTimeout != "" {
		d, err := time.ParseDuration(raw.WriteTimeout)
		if err != nil {
			return fmt.Errorf("write_timeout: %w", err)
		}
		s.WriteTimeout = d
	}
	return nil
}

// EngineConfig groups the routing pipeline knobs. Each sub-config has its
// own defaults; zero values fall back to them.
type EngineConfig struct {
	Analyzer  analyzer.Config  `yaml:"analyzer"`
	Retrieval retrieval.Config `yaml:"retrieval"`
	Scoring   scoring.Config   `yaml:"scoring"`
	Execution execution.Config `yaml:"execution"`
	Quality   registry.Config  `yaml:"quality"`
}

// RegistryConfig points at the on-disk registry and documentation corpus.
type RegistryConfig struct {
	Path       string `yaml:"path"`
	CorpusPath string `yaml:"corpus_path"`
}

// ProvidersConfig holds configuration for all backend providers. A nil
// entry disables that provider.
type ProvidersConfig struct {
	OpenAI    *openai.Config    `yaml:"openai"`
	Anthropic *anthropic.Config `yaml:"anthropic"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout", "stderr", or a file path
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	config.setDefaults()

	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	config.loadFromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (c *Config) setDefaults() {
	c.Server = ServerConfig{
		Port:           "8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
		OpenAPISpec:    "docs/openapi.yaml",
	}
	c.Engine = EngineConfig{
		Analyzer:  analyzer.DefaultConfig(),
		Retrieval: retrieval.DefaultConfig(),
		Scoring:   scoring.DefaultConfig(),
		Execution: execution.DefaultConfig(),
		Quality:   registry.DefaultConfig(),
	}
	c.Registry = RegistryConfig{
		Path:       "configs/models.yaml",
		CorpusPath: "configs/corpus.yaml",
	}
	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.Providers.OpenAI == nil {
			c.Providers.OpenAI = &openai.Config{}
		}
		c.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		if c.Providers.Anthropic == nil {
			c.Providers.Anthropic = &anthropic.Config{}
		}
		c.Providers.Anthropic.APIKey = key
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Security.JWTSecret = secret
	}
	if path := os.Getenv("MODEL_REGISTRY_PATH"); path != "" {
		c.Registry.Path = path
	}
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Registry.Path == "" {
		return fmt.Errorf("registry path is required")
	}
	if err := c.Engine.Scoring.Validate(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text", "":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.Security.RequireAuth && len(c.Security.APIKeys) == 0 && c.Security.JWTSecret == "" {
		return fmt.Errorf("auth required but no api keys or jwt secret configured")
	}
	return nil
}
