package bootstrap_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EduNex-Academy/session-gateway/bootstrap"
	"github.com/EduNex-Academy/session-gateway/identity"
	"github.com/EduNex-Academy/session-gateway/session"
	"github.com/EduNex-Academy/session-gateway/tabstore"
	"github.com/EduNex-Academy/session-gateway/tokencache"
	"github.com/EduNex-Academy/session-gateway/users"
)

// fakeRefresher scripts the identity service's answer to the startup refresh.
type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	resp  *identity.AuthResponse
	err   error
	block chan struct{}
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*identity.AuthResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.resp, f.err
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func successResponse() *identity.AuthResponse {
	return &identity.AuthResponse{
		AccessCredential: identity.AccessCredential{
			AccessToken:      "restored-token",
			TokenType:        "Bearer",
			ExpiresInSeconds: 900,
		},
		User: &users.User{ID: "user-1", Email: "jane@example.com", Role: users.RoleStudent},
	}
}

func newFixture(refresher bootstrap.Refresher) (*session.Store, *tokencache.Cache, *bootstrap.Bootstrapper, tabstore.Repo) {
	repo := tabstore.NewInMemoryRepo()
	store := session.NewStore()
	cache := tokencache.New(repo)
	return store, cache, bootstrap.New(store, cache, refresher), repo
}

func TestRunSuccessRestoresSession(t *testing.T) {
	refresher := &fakeRefresher{resp: successResponse()}
	store, cache, boot, _ := newFixture(refresher)

	boot.Run(context.Background())

	st := store.State()
	require.True(t, st.Initialized)
	require.True(t, st.Authenticated)
	require.Equal(t, "user-1", st.User.ID)
	require.Equal(t, "restored-token", st.Credential.AccessToken)

	token := cache.Get(context.Background())
	require.NotNil(t, token)
	require.Equal(t, "restored-token", token.AccessToken)
}

func TestRunFailureEndsInitializedAndSignedOut(t *testing.T) {
	refresher := &fakeRefresher{err: &identity.RefreshError{StatusCode: 401, Message: "expired"}}
	store, cache, boot, repo := newFixture(refresher)

	// A stale mirror from a previous page load must not survive a rejected
	// startup refresh.
	cache.Set(context.Background(), "stale", "Bearer", 900)

	boot.Run(context.Background())

	st := store.State()
	require.True(t, st.Initialized, "failure is as terminal as success")
	require.False(t, st.Authenticated)
	require.Nil(t, st.User)
	require.Nil(t, st.Credential)
	require.Nil(t, cache.Get(context.Background()))

	_, ok, err := repo.Get(context.Background(), "edunex_access_token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunIsOneShot(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("down")}
	_, _, boot, _ := newFixture(refresher)

	boot.Run(context.Background())
	boot.Run(context.Background())
	boot.Run(context.Background())

	require.Equal(t, 1, refresher.callCount())
}

func TestRunSkipsAnAlreadyInitializedStore(t *testing.T) {
	refresher := &fakeRefresher{resp: successResponse()}
	store, _, boot, _ := newFixture(refresher)

	store.SetInitialized()
	boot.Run(context.Background())

	require.Equal(t, 0, refresher.callCount())
}

func TestConcurrentRunsRefreshOnce(t *testing.T) {
	refresher := &fakeRefresher{resp: successResponse(), block: make(chan struct{})}
	store, _, boot, _ := newFixture(refresher)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			boot.Run(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(refresher.block)
	wg.Wait()

	require.Equal(t, 1, refresher.callCount())
	require.True(t, store.State().Initialized)
}

func TestMirroringTracksLaterSessionChanges(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("no credential")}
	store, cache, boot, _ := newFixture(refresher)

	boot.Run(context.Background())
	stop := boot.StartMirroring(context.Background())
	defer stop()

	// A sign-in after bootstrap must land in the mirror.
	store.UpdateTokens(
		&users.User{ID: "user-2", Role: users.RoleInstructor},
		&identity.AccessCredential{AccessToken: "fresh", TokenType: "Bearer", ExpiresInSeconds: 600},
	)
	token := cache.Get(context.Background())
	require.NotNil(t, token)
	require.Equal(t, "fresh", token.AccessToken)

	// And a sign-out must remove it.
	store.Logout()
	require.Nil(t, cache.Get(context.Background()))
}

func TestMirroringStopDetaches(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("no credential")}
	store, cache, boot, _ := newFixture(refresher)

	boot.Run(context.Background())
	stop := boot.StartMirroring(context.Background())
	stop()

	store.UpdateTokens(
		&users.User{ID: "user-3", Role: users.RoleStudent},
		&identity.AccessCredential{AccessToken: "unmirrored", TokenType: "Bearer", ExpiresInSeconds: 600},
	)
	require.Nil(t, cache.Get(context.Background()))
}
