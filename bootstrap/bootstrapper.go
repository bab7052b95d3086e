// Package bootstrap runs the one-time startup sequence that establishes a
// tab's initial session truth from the identity service.
package bootstrap

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/EduNex-Academy/session-gateway/identity"
	"github.com/EduNex-Academy/session-gateway/session"
	"github.com/EduNex-Academy/session-gateway/tokencache"
)

// Refresher issues the durable-credential exchange.
type Refresher interface {
	Refresh(ctx context.Context) (*identity.AuthResponse, error)
}

// runState is the bootstrap lifecycle. Transitions are one-way:
// idle -> inFlight -> done.
type runState int

const (
	stateIdle runState = iota
	stateInFlight
	stateDone
)

// Bootstrapper drives the startup refresh exactly once per store lifetime.
// Success and failure are equally terminal: either way the store ends up
// initialized and the bootstrapper ends up done.
type Bootstrapper struct {
	mu    sync.Mutex
	state runState

	store     *session.Store
	cache     *tokencache.Cache
	refresher Refresher
	log       zerolog.Logger
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bootstrapper) {
		b.log = log
	}
}

// New creates a bootstrapper over the given collaborators.
func New(store *session.Store, cache *tokencache.Cache, refresher Refresher, options ...Option) *Bootstrapper {
	b := &Bootstrapper{
		store:     store,
		cache:     cache,
		refresher: refresher,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Run performs the startup sequence. A Run while one is outstanding, or after
// one has completed, is a no-op; so is a Run against a store that is already
// initialized. Any refresh failure degrades to an unauthenticated session,
// it never propagates out of this method.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.mu.Lock()
	if b.state != stateIdle || b.store.State().Initialized {
		b.mu.Unlock()
		return
	}
	b.state = stateInFlight
	b.mu.Unlock()

	defer func() {
		b.store.SetInitialized()
		b.mu.Lock()
		b.state = stateDone
		b.mu.Unlock()
	}()

	resp, err := b.refresher.Refresh(ctx)
	if err != nil {
		b.log.Debug().Err(err).Msg("startup refresh rejected, starting unauthenticated")
		b.cache.Clear(ctx)
		b.store.Logout()
		return
	}

	b.store.UpdateTokens(resp.User, &resp.AccessCredential)
	b.cache.Set(ctx, resp.AccessToken, resp.TokenType, resp.ExpiresInSeconds)
	b.log.Info().Str("user_id", resp.User.ID).Msg("session restored from durable credential")
}

// StartMirroring keeps the token mirror aligned with session changes that
// happen after bootstrap, e.g. a sign-in completed by the OAuth callback.
// The mirror write is an unconditional overwrite either way. Returns a stop
// function that removes the subscription.
func (b *Bootstrapper) StartMirroring(ctx context.Context) func() {
	return b.store.Subscribe(func(st session.State) {
		if st.Authenticated && st.Credential != nil {
			b.cache.Set(ctx, st.Credential.AccessToken, st.Credential.TokenType, st.Credential.ExpiresInSeconds)
		} else {
			b.cache.Clear(ctx)
		}
	})
}
