package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	logLevelVar   = "LOG_LEVEL"
	identityVar   = "IDENTITY_BASE_URL"
	clientIDVar   = "OAUTH_CLIENT_ID"
	redirectVar   = "OAUTH_REDIRECT_URL"
	issuerVar     = "OAUTH_ISSUER"
	authURLVar    = "OAUTH_AUTH_URL"
	tokenURLVar   = "OAUTH_TOKEN_URL"
	scopesVar     = "OAUTH_SCOPES"
	redisAddrVar  = "REDIS_ADDR"
	redisPassVar  = "REDIS_PASSWORD"
	tabTTLVar     = "TAB_TTL"
	exchangeVar   = "EXCHANGE_TIMEOUT"
	countdownVar  = "REDIRECT_COUNTDOWN_SECONDS"
	originsEnvVar = "ALLOWED_ORIGINS"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "EduNex Session Gateway")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetIdentityBaseURL returns the base URL of the external identity service
// that owns issuing and validating credentials.
func (Identity) GetIdentityBaseURL() string {
	return GetEnv(identityVar, "http://localhost:9000")
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetOAuthClientID() string {
	return GetEnv(clientIDVar, "edunex-web")
}

func (Provider) GetOAuthRedirectURL() string {
	return GetEnv(redirectVar, "http://localhost:8080/auth/callback")
}

// GetOAuthIssuer returns the OIDC issuer used for endpoint discovery.
// Empty means discovery is skipped and the static URLs below are used.
func (Provider) GetOAuthIssuer() string {
	return GetEnv(issuerVar, "")
}

func (Provider) GetOAuthAuthURL() string {
	return GetEnv(authURLVar, "http://localhost:9000/oauth2/authorize")
}

func (Provider) GetOAuthTokenURL() string {
	return GetEnv(tokenURLVar, "http://localhost:9000/oauth2/token")
}

func (Provider) GetOAuthScopes() []string {
	raw := GetEnv(scopesVar, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
