package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type EnvVars struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	AppName         string        `env:"APP_NAME" envDefault:"SSO Bridge"`
	Env             string        `env:"ENV" envDefault:"DEV"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret       string        `env:"JWT_SECRET"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5s"`
	DatabaseDriver  string        `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:"./data/sso.db"`
	CorsOrigins     string        `env:"CORS_ORIGINS" envDefault:"*"`
}

var (
	_ EnvConfig      = EnvVars{}
	_ SSOConfig      = EnvVars{}
	_ DatabaseConfig = EnvVars{}
)

func (e EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return strings.EqualFold(e.GetEnv(), "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetJWTSecret returns the secret local session tokens are signed with.
// An empty value is not rejected at startup: token minting fails with a
// configuration error instead, matching the behaviour operators already see
// for missing SSO settings.
func (e EnvVars) GetJWTSecret() string {
	return e.JWTSecret
}

func (e EnvVars) GetProviderTimeout() time.Duration {
	return e.ProviderTimeout
}

func (e EnvVars) GetDatabaseDriver() string {
	return e.DatabaseDriver
}

func (e EnvVars) GetDatabaseURL() string {
	return e.DatabaseURL
}

func (e EnvVars) validate() error {
	switch e.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, e.DatabaseDriver)
	}
	if e.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if e.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}
