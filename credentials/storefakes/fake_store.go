package storefakes

import (
	"sync"

	"golang.org/x/oauth2"

	"github.com/chamapesa/go-chama-client/credentials"
	"github.com/chamapesa/go-chama-client/users"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store for tests. Call counters are
// exposed so tests can assert how the session layer drives the store.
type FakeStore struct {
	lock sync.Mutex

	token *oauth2.Token
	user  *users.User

	SaveCalls  int
	LoadCalls  int
	ClearCalls int

	SaveErr  error
	LoadErr  error
	ClearErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Save(token *oauth2.Token, user *users.User) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.SaveCalls++
	if fs.SaveErr != nil {
		return fs.SaveErr
	}
	fs.token = cloneToken(token)
	fs.user = user.Clone()
	return nil
}

func (fs *FakeStore) Load() (*credentials.Credentials, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.LoadCalls++
	if fs.LoadErr != nil {
		return nil, fs.LoadErr
	}
	if fs.token == nil && fs.user == nil {
		return nil, nil
	}
	// Unlike FileStore, partial state is returned as-is so tests can verify
	// that hydration enforces the user<=>token invariant instead of trusting
	// the store to have done it.
	return &credentials.Credentials{Token: cloneToken(fs.token), User: fs.user.Clone()}, nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.ClearCalls++
	if fs.ClearErr != nil {
		return fs.ClearErr
	}
	fs.token = nil
	fs.user = nil
	return nil
}

// SeedPartial installs a profile without a token, for corrupt-state tests.
func (fs *FakeStore) SeedPartial(user *users.User) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.token = nil
	fs.user = user.Clone()
}

// HasToken reports whether a token is currently stored.
func (fs *FakeStore) HasToken() bool {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.token != nil && fs.token.AccessToken != ""
}

// StoredAccessToken returns the stored access token, or "" when empty.
func (fs *FakeStore) StoredAccessToken() string {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.token == nil {
		return ""
	}
	return fs.token.AccessToken
}

func cloneToken(t *oauth2.Token) *oauth2.Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
