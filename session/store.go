// Package session holds a tab's session truth: the current user, the current
// access credential, and the authenticated/initialized flags. The Store is
// the single source every protected view reads from; everything else in the
// gateway only feeds it.
package session

import (
	"sync"

	"github.com/EduNex-Academy/session-gateway/identity"
	"github.com/EduNex-Academy/session-gateway/users"
)

// State is a snapshot of the session.
//
// Invariants: Authenticated == (User != nil && Credential != nil), and
// Initialized transitions false to true exactly once per store lifetime.
type State struct {
	User          *users.User
	Credential    *identity.AccessCredential
	Authenticated bool
	Initialized   bool
}

// Store is an observable holder of State. Every mutator notifies all
// subscribers synchronously before returning; there is no batching window, so
// by the time a mutator returns every consumer has seen the new state.
type Store struct {
	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int

	logoutHooks []func()
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogoutHook registers a function to run during Logout, before
// subscribers are notified. The server uses this to wipe the whole tab store,
// not just the token mirror: logout is a deliberate broad reset.
func WithLogoutHook(hook func()) StoreOption {
	return func(s *Store) {
		s.logoutHooks = append(s.logoutHooks, hook)
	}
}

// NewStore creates an empty, uninitialized session store.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		subs: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called synchronously on every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Login replaces the user and credential as a unit and marks the session
// authenticated. Credentials are never patched field by field; replacing the
// whole value is what keeps a single expiry attached to a single token.
func (s *Store) Login(user *users.User, credential *identity.AccessCredential) {
	s.mu.Lock()
	s.state.User = user
	s.state.Credential = credential
	s.state.Authenticated = user != nil && credential != nil
	s.notifyLocked()
}

// UpdateTokens is semantically identical to Login: both fully replace the
// user and credential. It exists because the two call sites read differently,
// a user signing in versus the gateway rotating tokens underneath them.
func (s *Store) UpdateTokens(user *users.User, credential *identity.AccessCredential) {
	s.Login(user, credential)
}

// UpdateUser patches only the user profile, preserving the credential.
func (s *Store) UpdateUser(user *users.User) {
	s.mu.Lock()
	s.state.User = user
	s.state.Authenticated = user != nil && s.state.Credential != nil
	s.notifyLocked()
}

// Logout clears the user, credential, and authenticated flag, runs the
// registered logout hooks, then notifies subscribers. Initialized is left
// as-is: a logged-out session is still an initialized one.
func (s *Store) Logout() {
	s.mu.Lock()
	s.state.User = nil
	s.state.Credential = nil
	s.state.Authenticated = false
	hooks := s.logoutHooks
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}

	s.mu.Lock()
	s.notifyLocked()
}

// SetInitialized flips the initialized flag. The transition happens at most
// once; repeat calls are no-ops and do not notify.
func (s *Store) SetInitialized() {
	s.mu.Lock()
	if s.state.Initialized {
		s.mu.Unlock()
		return
	}
	s.state.Initialized = true
	s.notifyLocked()
}

// notifyLocked snapshots the state and subscribers, releases the lock, and
// invokes every subscriber. Callers must hold s.mu; the lock is released on
// return. Subscribers may themselves call back into the store.
func (s *Store) notifyLocked() {
	state := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
