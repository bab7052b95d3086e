package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	IdentityConfig
	ProviderConfig
	SessionConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type IdentityConfig interface {
	GetIdentityBaseURL() string
}

type ProviderConfig interface {
	GetOAuthClientID() string
	GetOAuthRedirectURL() string
	GetOAuthIssuer() string
	GetOAuthAuthURL() string
	GetOAuthTokenURL() string
	GetOAuthScopes() []string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Identity
	Provider
	Session
	Cors
}

// New loads .env when present and returns the env-backed configuration.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
