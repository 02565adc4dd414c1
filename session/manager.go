// Package session owns the in-memory answer to "who is logged in, with what
// role". All writes to the credential store flow through the Manager so the
// user<=>token invariant is enforced in exactly one place.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/chamapesa/go-chama-client/authapi"
	"github.com/chamapesa/go-chama-client/credentials"
	"github.com/chamapesa/go-chama-client/users"
)

// StaleLoginErr is returned when a login attempt resolves after a newer login
// or a logout has superseded it. The completion is discarded without touching
// session state.
var StaleLoginErr = errors.New("login superseded by a newer attempt")

// Reason explains why the session was torn down, so the caller can decide what
// notice to show on the login view.
type Reason string

const (
	ReasonLogout  Reason = "logout"
	ReasonExpired Reason = "session_expired"
)

// ExpiredHandler is invoked after a forced teardown (refresh rejected or timed
// out). It is the hook the embedding application uses to navigate to its login
// view.
type ExpiredHandler func(reason Reason)

// AuthAPI is the slice of authapi.Client the Manager depends on.
type AuthAPI interface {
	Login(ctx context.Context, req authapi.LoginRequest) (*oauth2.Token, *users.User, error)
	Register(ctx context.Context, req authapi.RegisterRequest) (*oauth2.Token, *users.User, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Logout(ctx context.Context, accessToken string) error
}

var _ AuthAPI = (*authapi.Client)(nil)

const (
	defaultRefreshTimeout = 10 * time.Second
	defaultLogoutTimeout  = 5 * time.Second
)

// Manager is the process-wide session. Construct one per API base URL and
// inject it into the transport and guard; it is safe for concurrent use.
type Manager struct {
	store credentials.Store
	api   AuthAPI

	onExpired      ExpiredHandler
	refreshTimeout time.Duration
	logoutTimeout  time.Duration

	refreshGroup singleflight.Group

	mu        sync.RWMutex
	token     *oauth2.Token
	user      *users.User
	attemptID string
}

// Option modifies a Manager during construction.
type Option func(*Manager)

// WithExpiredHandler sets the forced-logout notification hook.
func WithExpiredHandler(handler ExpiredHandler) Option {
	return func(m *Manager) {
		m.onExpired = handler
	}
}

// WithRefreshTimeout bounds how long a token refresh may take before it is
// treated as a refresh failure.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = timeout
	}
}

// NewManager initializes a Manager with its required dependencies.
func NewManager(store credentials.Store, api AuthAPI, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, pkgerrors.New("[NewManager] credentials store is required")
	}
	if api == nil {
		return nil, pkgerrors.New("[NewManager] auth API client is required")
	}

	manager := &Manager{
		store:          store,
		api:            api,
		refreshTimeout: defaultRefreshTimeout,
		logoutTimeout:  defaultLogoutTimeout,
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// Hydrate seeds the session from the credential store. Called once at startup.
// Anything that violates the user<=>token invariant is treated as no session
// and cleared defensively; hydration never surfaces an error for bad state,
// only for store I/O failures.
func (m *Manager) Hydrate() error {
	creds, err := m.store.Load()
	if err != nil {
		return pkgerrors.Wrap(err, "[Manager.Hydrate] store.Load")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if creds == nil || creds.Token == nil || creds.Token.AccessToken == "" || creds.User == nil {
		m.token = nil
		m.user = nil
		if creds != nil {
			// Partial state slipped past the store; clear it here too.
			if err := m.store.Clear(); err != nil {
				return pkgerrors.Wrap(err, "[Manager.Hydrate] store.Clear")
			}
		}
		log.Debug().Msg("hydrate: no stored session")
		return nil
	}

	m.token = creds.Token
	m.user = creds.User
	log.Debug().Str("username", creds.User.Username).Msg("hydrate: restored session")
	return nil
}

// Login submits credentials and, on success, persists the token pair and
// profile before the new identity becomes observable. On failure nothing is
// mutated. Each attempt is tagged; a completion that arrives after a newer
// login or a logout is discarded.
func (m *Manager) Login(ctx context.Context, req authapi.LoginRequest) (*users.User, error) {
	tag := uuid.NewString()
	m.mu.Lock()
	m.attemptID = tag
	m.mu.Unlock()

	token, user, err := m.api.Login(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attemptID != tag {
		return nil, StaleLoginErr
	}
	if err != nil {
		return nil, err
	}
	if err := m.installLocked(token, user); err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.Login] install")
	}

	log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("logged in")
	return user.Clone(), nil
}

// Register creates an account and installs the returned session, the same
// register-then-auto-login flow the dashboard uses.
func (m *Manager) Register(ctx context.Context, req authapi.RegisterRequest) (*users.User, error) {
	tag := uuid.NewString()
	m.mu.Lock()
	m.attemptID = tag
	m.mu.Unlock()

	token, user, err := m.api.Register(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attemptID != tag {
		return nil, StaleLoginErr
	}
	if err != nil {
		return nil, err
	}
	if err := m.installLocked(token, user); err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.Register] install")
	}

	log.Info().Str("username", user.Username).Msg("registered and logged in")
	return user.Clone(), nil
}

// Logout notifies the server on a best-effort basis, then unconditionally
// clears the store and the in-memory session. It is effective locally even
// when the network is down, and safe to call repeatedly.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	accessToken := ""
	if m.token != nil {
		accessToken = m.token.AccessToken
	}
	m.attemptID = "" // supersede any in-flight login
	m.mu.Unlock()

	if accessToken != "" {
		notifyCtx, cancel := context.WithTimeout(ctx, m.logoutTimeout)
		defer cancel()
		if err := m.api.Logout(notifyCtx, accessToken); err != nil {
			log.Warn().Err(err).Msg("logout notify failed, proceeding with local logout")
		}
	}

	return m.teardown(ReasonLogout, false)
}

// Refresh exchanges the stored refresh token for a new access token, persists
// it, and returns it. Concurrent callers share a single in-flight refresh.
// Rejection or timeout tears the session down and notifies the expired
// handler; the caller's original failure is what surfaces to its initiator.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	result, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		m.mu.RLock()
		refreshToken := ""
		currentUser := m.user
		if m.token != nil {
			refreshToken = m.token.RefreshToken
		}
		m.mu.RUnlock()

		if currentUser == nil {
			return "", authapi.NotAuthenticatedErr
		}

		// Detached from the triggering request's context so one canceled
		// caller cannot fail the refresh for every waiter. Bounded instead by
		// the configured timeout; a timeout counts as refresh failure.
		refreshCtx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
		defer cancel()

		token, err := m.api.Refresh(refreshCtx, refreshToken)
		if err != nil {
			log.Warn().Err(err).Msg("token refresh rejected, forcing logout")
			if teardownErr := m.teardown(ReasonExpired, true); teardownErr != nil {
				log.Error().Err(teardownErr).Msg("session teardown after failed refresh")
			}
			return "", authapi.SessionExpiredErr
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.user == nil {
			// Logged out while the refresh was in flight; do not resurrect.
			return "", authapi.NotAuthenticatedErr
		}
		if err := m.installLocked(token, m.user); err != nil {
			return "", pkgerrors.Wrap(err, "[Manager.Refresh] install")
		}
		log.Debug().Msg("access token refreshed")
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// UpdateProfile replaces the stored profile snapshot wholesale after a
// server-side profile change. The token pair is untouched.
func (m *Manager) UpdateProfile(user *users.User) error {
	if user == nil {
		return pkgerrors.New("[Manager.UpdateProfile] user is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil || m.token == nil {
		return authapi.NotAuthenticatedErr
	}
	return m.installLocked(m.token, user)
}

// CurrentUser returns a copy of the authenticated profile, or nil.
func (m *Manager) CurrentUser() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Role returns the current role, or "" when logged out. Always derived from
// the profile, never cached separately.
func (m *Manager) Role() users.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return ""
	}
	return m.user.Role
}

// IsAdmin reports whether the current user holds admin or superadmin rights.
func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.IsAdmin()
}

// AccessToken returns the current bearer credential, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return ""
	}
	return m.token.AccessToken
}

// TokenSource exposes the session as an oauth2.TokenSource for libraries that
// expect one. The source does not refresh; it reflects whatever the session
// currently holds.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return tokenSource{manager: m}
}

type tokenSource struct {
	manager *Manager
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	ts.manager.mu.RLock()
	defer ts.manager.mu.RUnlock()
	if ts.manager.token == nil {
		return nil, authapi.NotAuthenticatedErr
	}
	clone := *ts.manager.token
	return &clone, nil
}

// installLocked persists the pair via the store first, then updates memory, so
// a resolved login is fully durable before any reader observes the identity.
// Callers must hold m.mu.
func (m *Manager) installLocked(token *oauth2.Token, user *users.User) error {
	if err := m.store.Save(token, user); err != nil {
		return err
	}
	m.token = token
	m.user = user.Clone()
	return nil
}

// teardown clears the store and memory wholesale. notify controls whether the
// expired handler fires; plain logouts do not trigger it.
func (m *Manager) teardown(reason Reason, notify bool) error {
	m.mu.Lock()
	m.token = nil
	m.user = nil
	m.attemptID = ""
	m.mu.Unlock()

	err := m.store.Clear()

	if notify && m.onExpired != nil {
		m.onExpired(reason)
	}
	if err != nil {
		return pkgerrors.Wrap(err, "[Manager.teardown] store.Clear")
	}
	return nil
}
