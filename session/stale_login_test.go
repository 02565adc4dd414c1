package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/chamapesa/go-chama-client/authapi"
	"github.com/chamapesa/go-chama-client/credentials/storefakes"
	"github.com/chamapesa/go-chama-client/session"
	"github.com/chamapesa/go-chama-client/users"
)

// scriptedAuthAPI lets tests control exactly when each login completes, to
// exercise overlapping attempts deterministically.
type scriptedAuthAPI struct {
	lock    sync.Mutex
	scripts map[string]*loginScript
	entered chan string
}

type loginScript struct {
	release chan struct{}
	token   *oauth2.Token
	user    *users.User
}

func newScriptedAuthAPI() *scriptedAuthAPI {
	return &scriptedAuthAPI{
		scripts: make(map[string]*loginScript),
		entered: make(chan string, 4),
	}
}

func (s *scriptedAuthAPI) script(username, accessToken string, user *users.User) *loginScript {
	s.lock.Lock()
	defer s.lock.Unlock()
	script := &loginScript{
		release: make(chan struct{}),
		token:   &oauth2.Token{AccessToken: accessToken},
		user:    user,
	}
	s.scripts[username] = script
	return script
}

func (s *scriptedAuthAPI) Login(ctx context.Context, req authapi.LoginRequest) (*oauth2.Token, *users.User, error) {
	s.lock.Lock()
	script := s.scripts[req.Username]
	s.lock.Unlock()

	s.entered <- req.Username
	<-script.release
	return script.token, script.user, nil
}

func (s *scriptedAuthAPI) Register(ctx context.Context, req authapi.RegisterRequest) (*oauth2.Token, *users.User, error) {
	return nil, nil, authapi.RegistrationRejectedErr
}

func (s *scriptedAuthAPI) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return nil, authapi.SessionExpiredErr
}

func (s *scriptedAuthAPI) Logout(ctx context.Context, accessToken string) error {
	return nil
}

func TestStaleLoginCompletionIsDiscarded(t *testing.T) {
	api := newScriptedAuthAPI()
	store := storefakes.NewFakeStore()
	manager, err := session.NewManager(store, api)
	require.NoError(t, err)

	alice := api.script("alice", "T-old", &users.User{ID: 1, Username: "alice", Role: users.RoleMember})
	bob := api.script("bob", "T-new", &users.User{ID: 2, Username: "bob", Role: users.RoleAdmin})

	// First attempt goes in-flight...
	firstDone := make(chan error, 1)
	go func() {
		_, err := manager.Login(context.Background(), authapi.LoginRequest{Username: "alice", Password: "pw"})
		firstDone <- err
	}()
	require.Equal(t, "alice", <-api.entered)

	// ...then a newer attempt supersedes it and completes first.
	secondDone := make(chan error, 1)
	go func() {
		_, err := manager.Login(context.Background(), authapi.LoginRequest{Username: "bob", Password: "pw"})
		secondDone <- err
	}()
	require.Equal(t, "bob", <-api.entered)

	close(bob.release)
	require.NoError(t, <-secondDone)

	close(alice.release)
	require.ErrorIs(t, <-firstDone, session.StaleLoginErr)

	current := manager.CurrentUser()
	require.NotNil(t, current)
	require.Equal(t, "bob", current.Username, "older completion must not clobber the newer session")
	require.Equal(t, "T-new", manager.AccessToken())
	require.Equal(t, "T-new", store.StoredAccessToken())
}

func TestLogoutSupersedesInFlightLogin(t *testing.T) {
	api := newScriptedAuthAPI()
	store := storefakes.NewFakeStore()
	manager, err := session.NewManager(store, api)
	require.NoError(t, err)

	alice := api.script("alice", "T1", &users.User{ID: 1, Username: "alice", Role: users.RoleMember})

	done := make(chan error, 1)
	go func() {
		_, err := manager.Login(context.Background(), authapi.LoginRequest{Username: "alice", Password: "pw"})
		done <- err
	}()
	require.Equal(t, "alice", <-api.entered)

	require.NoError(t, manager.Logout(context.Background()))
	close(alice.release)

	require.ErrorIs(t, <-done, session.StaleLoginErr)
	require.False(t, manager.IsAuthenticated())
	require.False(t, store.HasToken())
}
