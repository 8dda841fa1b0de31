package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SSOConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// SSOConfig holds the process-level SSO settings. Provider credentials and
// the session TTL live in the settings store instead so they can be rotated
// without a restart.
type SSOConfig interface {
	GetJWTSecret() string
	GetProviderTimeout() time.Duration
}

type DatabaseConfig interface {
	GetDatabaseDriver() string
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Cors
}

var _ Config = mainConfig{}

// Load reads an optional .env file and then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return nil, fmt.Errorf("[config Load] parsing environment: %w", err)
	}
	if err := vars.validate(); err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	return mainConfig{EnvVars: vars, Cors: Cors{origins: parseOrigins(vars.CorsOrigins)}}, nil
}
