package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EduNex-Academy/session-gateway/authflow"
	"github.com/EduNex-Academy/session-gateway/bootstrap"
	"github.com/EduNex-Academy/session-gateway/identity"
	"github.com/EduNex-Academy/session-gateway/session"
	"github.com/EduNex-Academy/session-gateway/tabstore"
	"github.com/EduNex-Academy/session-gateway/tokencache"
)

// Runtime bundles the session machinery for one browser tab: the observable
// session store, the token mirror, the identity client with its own cookie
// jar (the durable credential lives there), the bootstrapper, and the
// callback handler. It exists from the tab's first request until the tab has
// been idle for the configured TTL.
type Runtime struct {
	TabID    string
	Repo     tabstore.Repo
	Store    *session.Store
	Cache    *tokencache.Cache
	Identity *identity.Client
	Boot     *bootstrap.Bootstrapper
	Callback *authflow.Handler

	ready      chan struct{}
	stopMirror func()
	evict      *time.Timer
}

// WaitReady blocks until the startup bootstrap has completed or ctx is done.
// Returns true when the runtime is initialized. Bootstrap itself is not
// cancellable; giving up here only stops the waiting, not the refresh.
func (rt *Runtime) WaitReady(ctx context.Context) bool {
	select {
	case <-rt.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

func (rt *Runtime) teardown() {
	rt.evict.Stop()
	rt.stopMirror()
}

// RegistryParams holds the dependencies for a runtime registry.
type RegistryParams struct {
	IdentityBaseURL string
	ExchangeTimeout time.Duration
	TabTTL          time.Duration
	NewRepo         func(tabID string) (tabstore.Repo, error)
	Logger          zerolog.Logger
}

// Registry tracks the live tab runtimes. Each runtime carries an idle
// eviction timer; resolving the runtime pushes the timer out, and teardown
// stops it so an evicted timer never fires against a dismantled runtime.
type Registry struct {
	mu       sync.Mutex
	runtimes map[string]*Runtime
	closed   bool

	identityBaseURL string
	exchangeTimeout time.Duration
	ttl             time.Duration
	newRepo         func(tabID string) (tabstore.Repo, error)
	log             zerolog.Logger
}

// NewRegistry creates an empty runtime registry.
func NewRegistry(params RegistryParams) *Registry {
	return &Registry{
		runtimes:        make(map[string]*Runtime),
		identityBaseURL: params.IdentityBaseURL,
		exchangeTimeout: params.ExchangeTimeout,
		ttl:             params.TabTTL,
		newRepo:         params.NewRepo,
		log:             params.Logger,
	}
}

// Resolve returns the runtime for tabID, creating it on first sight.
// Creation kicks off the startup bootstrap in the background; callers that
// need session truth use Runtime.WaitReady.
func (reg *Registry) Resolve(tabID string) (*Runtime, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.closed {
		return nil, fmt.Errorf("[Registry Resolve] registry is closed")
	}

	if rt, ok := reg.runtimes[tabID]; ok {
		rt.evict.Reset(reg.ttl)
		return rt, nil
	}

	rt, err := reg.newRuntime(tabID)
	if err != nil {
		return nil, err
	}
	reg.runtimes[tabID] = rt

	rt.evict = time.AfterFunc(reg.ttl, func() {
		reg.remove(tabID)
	})

	go func() {
		rt.Boot.Run(context.Background())
		close(rt.ready)
	}()

	return rt, nil
}

func (reg *Registry) newRuntime(tabID string) (*Runtime, error) {
	logger := reg.log.With().Str("tab_id", tabID).Logger()

	repo, err := reg.newRepo(tabID)
	if err != nil {
		return nil, fmt.Errorf("[Registry newRuntime] tab store: %w", err)
	}

	// Logout is a broad reset: the whole tab store goes, not just the token
	// mirror.
	store := session.NewStore(session.WithLogoutHook(func() {
		if err := repo.Clear(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tab store wipe on logout failed")
		}
	}))

	cache := tokencache.New(repo, tokencache.WithLogger(logger))

	ident, err := identity.NewClient(reg.identityBaseURL, identity.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("[Registry newRuntime] identity client: %w", err)
	}

	boot := bootstrap.New(store, cache, ident, bootstrap.WithLogger(logger))
	stopMirror := boot.StartMirroring(context.Background())

	callback := authflow.NewHandler(repo, store, cache, ident,
		authflow.WithExchangeTimeout(reg.exchangeTimeout),
		authflow.WithLogger(logger),
	)

	return &Runtime{
		TabID:      tabID,
		Repo:       repo,
		Store:      store,
		Cache:      cache,
		Identity:   ident,
		Boot:       boot,
		Callback:   callback,
		ready:      make(chan struct{}),
		stopMirror: stopMirror,
	}, nil
}

func (reg *Registry) remove(tabID string) {
	reg.mu.Lock()
	rt, ok := reg.runtimes[tabID]
	if ok {
		delete(reg.runtimes, tabID)
	}
	reg.mu.Unlock()

	if ok {
		rt.teardown()
		reg.log.Debug().Str("tab_id", tabID).Msg("tab runtime evicted")
	}
}

// Close tears down all runtimes. Resolve fails afterwards.
func (reg *Registry) Close() {
	reg.mu.Lock()
	reg.closed = true
	runtimes := reg.runtimes
	reg.runtimes = make(map[string]*Runtime)
	reg.mu.Unlock()

	for _, rt := range runtimes {
		rt.teardown()
	}
}
