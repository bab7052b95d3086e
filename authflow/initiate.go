package authflow

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/EduNex-Academy/session-gateway/tabstore"
	"github.com/EduNex-Academy/session-gateway/users"
)

// ProviderSettings describes the identity provider the login flow redirects
// to. When Issuer is set, the authorize and token endpoints come from OIDC
// discovery; otherwise the static URLs are used as-is.
type ProviderSettings struct {
	ClientID    string
	RedirectURL string
	Issuer      string
	AuthURL     string
	TokenURL    string
	Scopes      []string
}

// Initiator builds the provider authorize redirect for a sign-in attempt.
// It is shared across tabs; only the role stash is tab-scoped.
type Initiator struct {
	oauthConfig *oauth2.Config
}

// NewInitiator resolves the provider endpoints and prepares the OAuth2
// configuration used to build authorize URLs.
func NewInitiator(ctx context.Context, settings ProviderSettings) (*Initiator, error) {
	if settings.ClientID == "" {
		return nil, fmt.Errorf("[NewInitiator] client ID is required")
	}
	if settings.RedirectURL == "" {
		return nil, fmt.Errorf("[NewInitiator] redirect URL is required")
	}

	endpoint := oauth2.Endpoint{
		AuthURL:  settings.AuthURL,
		TokenURL: settings.TokenURL,
	}
	if settings.Issuer != "" {
		provider, err := oidc.NewProvider(ctx, settings.Issuer)
		if err != nil {
			return nil, fmt.Errorf("[NewInitiator] provider discovery: %w", err)
		}
		endpoint = provider.Endpoint()
	}

	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Initiator{
		oauthConfig: &oauth2.Config{
			ClientID:    settings.ClientID,
			RedirectURL: settings.RedirectURL,
			Endpoint:    endpoint,
			Scopes:      scopes,
		},
	}, nil
}

// Begin stashes the role the user is signing in as, then returns the
// provider authorize URL to redirect them to. The stash must succeed before
// the redirect happens: without it the callback cannot validate the role the
// provider hands back.
func (i *Initiator) Begin(ctx context.Context, repo tabstore.Repo, role users.RoleType) (string, error) {
	if err := repo.Set(ctx, roleStashKey, string(role)); err != nil {
		return "", fmt.Errorf("[Initiator Begin] stash role: %w", err)
	}

	state := uuid.NewString()
	return i.oauthConfig.AuthCodeURL(state), nil
}
