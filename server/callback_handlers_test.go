package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newExchangeStub serves both identity endpoints: the refresh blocks until
// release is closed and then answers 401, the exchange succeeds immediately.
func newExchangeStub(t *testing.T, release chan struct{}, exchanges *int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			<-release
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "no durable credential"})
		case "/auth/oauth/callback":
			atomic.AddInt32(exchanges, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"accessToken": "exchanged",
				"tokenType":   "Bearer",
				"expiresIn":   900,
				"user":        map[string]any{"id": "user-1", "role": "STUDENT"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// A callback arriving on a runtime whose startup bootstrap is still in flight
// must not start the exchange until the bootstrap has settled. The failed
// bootstrap's broad tab reset then runs strictly before the exchange, so it
// can never wipe out a session the callback establishes.
func TestCallbackWaitsForBootstrapToSettle(t *testing.T) {
	var exchanges int32
	release := make(chan struct{})
	stub := newExchangeStub(t, release, &exchanges)

	s := &Server{
		log:      zerolog.Nop(),
		runtimes: newTestRegistry(t, stub.URL),
	}

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)

	// The role stash survives from before the runtime was recreated, as a
	// Redis-backed tab store would preserve it across a gateway restart.
	require.NoError(t, rt.Repo.Set(context.Background(), "edunex_intended_role", "STUDENT"))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		s.CallbackHandler()(rec, requestWithRuntime(rt, RouteCallback+"?code=code-abcdef&state=s"))
		done <- rec
	}()

	// With the refresh still held open, the exchange must not have started.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&exchanges), "exchange ran before bootstrap settled")
	select {
	case <-done:
		t.Fatal("callback completed before bootstrap settled")
	default:
	}

	close(release)
	rec := <-done

	// The reset consumed the stash before the exchange could run, so the
	// outcome is a clean user-facing error, not a half-established session.
	st := rt.Store.State()
	require.True(t, st.Initialized)
	require.False(t, st.Authenticated)
	require.Equal(t, int32(0), atomic.LoadInt32(&exchanges))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// The complement: once the bootstrap has settled, a callback's successful
// exchange stays established. Nothing runs afterwards that could undo it.
func TestCallbackSignInSurvivesFailedBootstrap(t *testing.T) {
	var exchanges int32
	release := make(chan struct{})
	close(release) // refresh fails immediately
	stub := newExchangeStub(t, release, &exchanges)

	s := &Server{
		log:      zerolog.Nop(),
		runtimes: newTestRegistry(t, stub.URL),
	}

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)
	waitReady(t, rt)

	// Stash after the bootstrap reset, as LoginHandler does.
	require.NoError(t, rt.Repo.Set(context.Background(), "edunex_intended_role", "STUDENT"))

	rec := httptest.NewRecorder()
	s.CallbackHandler()(rec, requestWithRuntime(rt, RouteCallback+"?code=code-abcdef&state=s"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), atomic.LoadInt32(&exchanges))

	st := rt.Store.State()
	require.True(t, st.Authenticated, "the established session must outlive the failed bootstrap")
	require.Equal(t, "exchanged", st.Credential.AccessToken)
}

// An abandoned login request must not write the role stash: the stash only
// goes down once session truth exists, and a caller that gave up gets nothing.
func TestLoginAbandonedWaitWritesNothing(t *testing.T) {
	var exchanges int32
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stub := newExchangeStub(t, release, &exchanges)

	s := &Server{
		log:      zerolog.Nop(),
		runtimes: newTestRegistry(t, stub.URL),
	}

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, RouteLogin+"?role=STUDENT", nil)
	req = req.WithContext(context.WithValue(ctx, ContextKeyRuntime, rt))

	rec := httptest.NewRecorder()
	s.LoginHandler()(rec, req)

	_, ok, err := rt.Repo.Get(context.Background(), "edunex_intended_role")
	require.NoError(t, err)
	require.False(t, ok, "no stash may be written after the wait was abandoned")
	require.Empty(t, rec.Header().Get("Location"), "no provider redirect for an abandoned request")
}
