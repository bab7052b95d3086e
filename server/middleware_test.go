package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/EduNex-Academy/session-gateway/users"
)

func newGuardedServer(t *testing.T, identityURL string) *Server {
	t.Helper()

	return &Server{
		log:      zerolog.Nop(),
		runtimes: newTestRegistry(t, identityURL),
	}
}

func requestWithRuntime(rt *Runtime, target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := context.WithValue(r.Context(), ContextKeyRuntime, rt)
	return r.WithContext(ctx)
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	stub := newIdentityStub(t, true) // restores an INSTRUCTOR session
	s := newGuardedServer(t, stub.URL)

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)
	waitReady(t, rt)

	called := false
	handler := s.RequireRole(users.RoleInstructor)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	handler(rec, requestWithRuntime(rt, RouteInstructorDashboard))

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleRedirectsWrongRole(t *testing.T) {
	stub := newIdentityStub(t, true)
	s := newGuardedServer(t, stub.URL)

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)
	waitReady(t, rt)

	handler := s.RequireRole(users.RoleStudent)(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run for the wrong role")
	})

	rec := httptest.NewRecorder()
	handler(rec, requestWithRuntime(rt, RouteStudentDashboard))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, users.InstructorLandingPath, rec.Header().Get("Location"))
}

func TestRequireRoleSendsUnauthenticatedToSignIn(t *testing.T) {
	stub := newIdentityStub(t, false)
	s := newGuardedServer(t, stub.URL)

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)
	waitReady(t, rt)

	handler := s.RequireRole(users.RoleStudent)(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run unauthenticated")
	})

	rec := httptest.NewRecorder()
	handler(rec, requestWithRuntime(rt, RouteStudentDashboard))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, users.SignInPath, rec.Header().Get("Location"))
}

func TestRequireRoleAnswersLoadingWhileBootstrapping(t *testing.T) {
	stub := newIdentityStub(t, false)
	s := newGuardedServer(t, stub.URL)

	rt, err := s.runtimes.Resolve("tab-1")
	require.NoError(t, err)
	// No waitReady: the decision must come back before truth exists.

	handler := s.RequireRole(users.RoleStudent)(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("protected handler must not run before initialization")
	})

	rec := httptest.NewRecorder()
	// Build the request against a store that is still uninitialized. The
	// bootstrap may finish at any moment, so only assert when we caught the
	// pre-initialization window.
	if rt.Store.State().Initialized {
		t.Skip("bootstrap finished before the request was made")
	}
	handler(rec, requestWithRuntime(rt, RouteStudentDashboard))

	if rec.Code == http.StatusServiceUnavailable {
		require.Equal(t, "1", rec.Header().Get("Retry-After"))
	} else {
		// Lost the race: the only acceptable alternative is the settled
		// unauthenticated answer.
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}
}

func TestTabSessionMiddlewareAssignsCookie(t *testing.T) {
	stub := newIdentityStub(t, false)
	s := newGuardedServer(t, stub.URL)

	var gotRuntime *Runtime
	handler := s.TabSessionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotRuntime = runtimeFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, RouteSession, nil))

	require.NotNil(t, gotRuntime)

	var tabCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == tabCookieName {
			tabCookie = c
		}
	}
	require.NotNil(t, tabCookie, "first sight assigns a tab cookie")
	require.Equal(t, gotRuntime.TabID, tabCookie.Value)
	require.True(t, tabCookie.HttpOnly)
	require.Zero(t, tabCookie.MaxAge, "session cookie dies with the browser session")
}

func TestTabSessionMiddlewareReusesCookie(t *testing.T) {
	stub := newIdentityStub(t, false)
	s := newGuardedServer(t, stub.URL)

	var runtimes []*Runtime
	handler := s.TabSessionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		runtimes = append(runtimes, runtimeFromContext(r.Context()))
	})

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest(http.MethodGet, RouteSession, nil))

	second := httptest.NewRequest(http.MethodGet, RouteSession, nil)
	for _, c := range first.Result().Cookies() {
		second.AddCookie(c)
	}
	handler(httptest.NewRecorder(), second)

	require.Len(t, runtimes, 2)
	require.Same(t, runtimes[0], runtimes[1], "the cookie pins the tab to its runtime")
}
