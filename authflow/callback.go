// Package authflow implements the OAuth authorization-code flow as seen from
// the gateway: sending the user to the identity provider with their chosen
// role stashed, and exchanging the code the provider redirects back with.
//
// The exchange is guarded so a given code runs at most once per tab, even
// when the callback fires twice from a reload or a duplicated redirect.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/EduNex-Academy/session-gateway/identity"
	"github.com/EduNex-Academy/session-gateway/session"
	"github.com/EduNex-Academy/session-gateway/tabstore"
	"github.com/EduNex-Academy/session-gateway/tokencache"
	"github.com/EduNex-Academy/session-gateway/users"
)

const (
	// roleStashKey holds the role the user picked before leaving for the
	// provider. Written by the initiator, read-and-cleared by the callback.
	roleStashKey = "edunex_intended_role"

	// Dedup markers live under dedupKeyPrefix plus a fixed-length prefix of
	// the authorization code. The marker is written before the exchange
	// starts and is only removed when the exchange completes, so a code that
	// failed mid-flight cannot be resubmitted within the same tab session.
	dedupKeyPrefix   = "oauth_processed_"
	codePrefixLength = 16

	// DefaultExchangeTimeout bounds the code-exchange network call.
	DefaultExchangeTimeout = 30 * time.Second
)

// Exchanger trades an authorization code for an access credential.
type Exchanger interface {
	Exchange(ctx context.Context, code, roleHint, state string) (*identity.AuthResponse, error)
}

// Status is the terminal state of one callback attempt.
type Status string

const (
	// StatusSuccess: credential issued, role matched, session populated.
	StatusSuccess Status = "success"
	// StatusSkipped: this code was already seen in this tab; nothing changed.
	StatusSkipped Status = "skipped"
	// StatusError: the attempt failed; Result.Err carries the category.
	StatusError Status = "error"
)

// Result describes how a callback attempt ended.
type Result struct {
	Status       Status
	Role         users.RoleType // role the session was established for
	RedirectPath string         // landing path on success
	Err          *CallbackError // set when Status is StatusError
}

// Handler processes provider redirects for one tab.
type Handler struct {
	repo      tabstore.Repo
	store     *session.Store
	cache     *tokencache.Cache
	exchanger Exchanger
	timeout   time.Duration
	log       zerolog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExchangeTimeout overrides the exchange deadline.
func WithExchangeTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler creates a callback handler over the tab's collaborators.
func NewHandler(repo tabstore.Repo, store *session.Store, cache *tokencache.Cache, exchanger Exchanger, options ...HandlerOption) *Handler {
	h := &Handler{
		repo:      repo,
		store:     store,
		cache:     cache,
		exchanger: exchanger,
		timeout:   DefaultExchangeTimeout,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Process runs one callback attempt against the redirect parameters.
//
// Failures never propagate as Go errors; every outcome is folded into the
// Result so the caller's only job is rendering it.
func (h *Handler) Process(ctx context.Context, params url.Values) Result {
	code := params.Get("code")
	state := params.Get("state")
	errorParam := params.Get("error")
	errorDesc := params.Get("error_description")

	if errorParam != "" {
		return h.fail(CategoryProvider, fmt.Sprintf("OAuth error: %s - %s", errorParam, errorDesc))
	}
	if code == "" {
		return h.fail(CategoryMissingCode, "No authorization code received")
	}

	intendedRole, ok := h.takeRoleStash(ctx)
	if !ok {
		return h.fail(CategoryMissingRole, "Could not determine which portal you signed in from. Please start again.")
	}

	markerKey := dedupKey(code)
	_, seen, err := h.repo.Get(ctx, markerKey)
	if err != nil {
		// A failing store degrades the dedup guard to best effort; leave a
		// trace so that degradation is visible.
		h.log.Warn().Err(err).Msg("could not read dedup marker")
	}
	if seen {
		h.log.Debug().Msg("authorization code already handled in this tab, skipping")
		return Result{Status: StatusSkipped}
	}
	// The marker goes down before the slow call starts. That is the whole
	// idempotency guard: a re-entrant invocation lands on the marker, not on
	// a second network exchange.
	if err := h.repo.Set(ctx, markerKey, "1"); err != nil {
		h.log.Warn().Err(err).Msg("could not write dedup marker")
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.exchanger.Exchange(exchangeCtx, code, string(intendedRole), state)
	if err != nil {
		// Marker stays in place: a broken code must not be replayed against
		// the provider from this tab. Recovery goes through a fresh redirect.
		return h.fail(classify(err), failureMessage(err))
	}

	if resp.User.Role != intendedRole {
		// The exchange itself succeeded, so this follows the success branch
		// for the marker. But the credential is not promoted: accepting it
		// would sign the user into a portal they did not ask for.
		if err := h.repo.Delete(ctx, markerKey); err != nil {
			h.log.Warn().Err(err).Msg("could not clear dedup marker")
		}
		h.log.Info().
			Str("intended", string(intendedRole)).
			Str("actual", string(resp.User.Role)).
			Msg("role mismatch on oauth exchange")
		return h.fail(CategoryRoleMismatch, fmt.Sprintf(
			"This account is registered as %s, but you signed in from the %s portal. Please use the %s sign-in.",
			resp.User.Role, intendedRole, resp.User.Role))
	}

	h.store.UpdateTokens(resp.User, &resp.AccessCredential)
	h.cache.Set(ctx, resp.AccessToken, resp.TokenType, resp.ExpiresInSeconds)
	if err := h.repo.Delete(ctx, markerKey); err != nil {
		h.log.Warn().Err(err).Msg("could not clear dedup marker")
	}

	h.log.Info().Str("user_id", resp.User.ID).Str("role", string(resp.User.Role)).Msg("oauth exchange complete")
	return Result{
		Status:       StatusSuccess,
		Role:         intendedRole,
		RedirectPath: users.LandingPath(intendedRole),
	}
}

func (h *Handler) fail(category Category, message string) Result {
	h.log.Debug().Str("category", string(category)).Str("message", message).Msg("oauth callback failed")
	return Result{
		Status: StatusError,
		Err:    &CallbackError{Category: category, Message: message},
	}
}

// takeRoleStash reads and clears the pre-redirect role stash.
func (h *Handler) takeRoleStash(ctx context.Context) (users.RoleType, bool) {
	raw, ok, err := h.repo.Get(ctx, roleStashKey)
	if err != nil || !ok {
		return "", false
	}
	if err := h.repo.Delete(ctx, roleStashKey); err != nil {
		h.log.Warn().Err(err).Msg("could not clear role stash")
	}
	role, ok := users.ParseRole(raw)
	return role, ok
}

func dedupKey(code string) string {
	prefix := code
	if len(prefix) > codePrefixLength {
		prefix = prefix[:codePrefixLength]
	}
	return dedupKeyPrefix + prefix
}

func classify(err error) Category {
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, identity.ErrInvalidCode):
		return CategoryInvalidCode
	case errors.Is(err, identity.ErrInvalidResponse):
		return CategoryInvalidResponse
	case errors.As(err, &urlErr):
		return CategoryNetwork
	default:
		return CategoryOther
	}
}

func failureMessage(err error) string {
	switch classify(err) {
	case CategoryTimeout:
		return "The sign-in request timed out. Please try signing in again."
	case CategoryInvalidCode:
		return "Your sign-in link has expired or was already used. Please sign in again."
	case CategoryInvalidResponse:
		return "The authentication service returned an unexpected response. Please try again."
	case CategoryNetwork:
		return "Could not reach the authentication service. Check your connection and try again."
	default:
		return "Sign-in failed. Please try again."
	}
}
