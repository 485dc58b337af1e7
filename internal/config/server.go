package config

import (
	"github.com/tributary-ai/routing-engine/internal/server"
)

// ToServerConfig flattens the application config into the server package's
// config shape.
func (c *Config) ToServerConfig() *server.Config {
	return &server.Config{
		Port:           c.Server.Port,
		ReadTimeout:    c.Server.ReadTimeout,
		WriteTimeout:   c.Server.WriteTimeout,
		MaxHeaderBytes: c.Server.MaxHeaderBytes,
		OpenAPISpec:    c.Server.OpenAPISpec,
		ValidateSpec:   c.Server.ValidateSpec,
		Security:       &c.Security,
		RegistryPath:   c.Registry.Path,
	}
}
