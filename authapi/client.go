// Package authapi speaks to the chama platform's authentication endpoints.
// It performs the raw HTTP round-trips for login, refresh, logout, and
// registration; session state and persistence live in the session package.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/chamapesa/go-chama-client/users"
)

const defaultTimeout = 15 * time.Second

// Client calls the /auth/* endpoints. It deliberately uses a plain HTTP client
// rather than the authenticated transport: refresh and login must never
// themselves trigger the refresh-on-401 protocol.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option modifies a Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for testing
// and for callers that need custom TLS or proxy settings).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an auth endpoint client rooted at baseURL, e.g.
// "https://api.chamapesa.example/api".
func NewClient(baseURL string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[authapi.NewClient] baseURL is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// LoginRequest carries the credentials submitted to /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the fields submitted to /auth/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// tokenEnvelope is the wire shape shared by login, register, and refresh
// responses.
type tokenEnvelope struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *users.User `json:"user"`
}

// Login exchanges credentials for a token pair and profile snapshot. A 400 or
// 401 from the server maps to InvalidCredentialsErr; other failures are
// returned wrapped so callers can distinguish network trouble from rejection.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*oauth2.Token, *users.User, error) {
	resp, err := c.postJSON(ctx, "/auth/login", req, "")
	if err != nil {
		return nil, nil, errors.Wrap(err, "[authapi.Login] post")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, nil, InvalidCredentialsErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, errors.Wrap(UnexpectedStatusErr, fmt.Sprintf("[authapi.Login] status %d", resp.StatusCode))
	}

	return decodeTokenEnvelope(resp.Body, "[authapi.Login]")
}

// Register creates an account and, on success, returns the same token pair and
// profile shape as Login so the caller can install the session immediately.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*oauth2.Token, *users.User, error) {
	resp, err := c.postJSON(ctx, "/auth/register", req, "")
	if err != nil {
		return nil, nil, errors.Wrap(err, "[authapi.Register] post")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict {
		return nil, nil, RegistrationRejectedErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, errors.Wrap(UnexpectedStatusErr, fmt.Sprintf("[authapi.Register] status %d", resp.StatusCode))
	}

	return decodeTokenEnvelope(resp.Body, "[authapi.Register]")
}

// Refresh exchanges the refresh token for a new access token. Any rejection by
// the server maps to SessionExpiredErr; the caller is expected to tear down
// the session on that error.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, SessionExpiredErr
	}

	body := map[string]string{"refresh_token": refreshToken}
	resp, err := c.postJSON(ctx, "/auth/refresh", body, "")
	if err != nil {
		return nil, errors.Wrap(err, "[authapi.Refresh] post")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, SessionExpiredErr
	}

	var envelope tokenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(MalformedResponseErr, "[authapi.Refresh] decode")
	}
	if envelope.AccessToken == "" {
		return nil, errors.Wrap(MalformedResponseErr, "[authapi.Refresh] missing access token")
	}

	// The refresh endpoint only mints a new access token; the refresh token
	// itself is carried forward unless the server rotated it.
	rotated := envelope.RefreshToken
	if rotated == "" {
		rotated = refreshToken
	}
	return buildToken(envelope.AccessToken, rotated), nil
}

// Logout notifies the server that the session is over. Callers treat this as
// best-effort: local teardown proceeds no matter what this returns.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	resp, err := c.postJSON(ctx, "/auth/logout", struct{}{}, accessToken)
	if err != nil {
		return errors.Wrap(err, "[authapi.Logout] post")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrap(UnexpectedStatusErr, fmt.Sprintf("[authapi.Logout] status %d", resp.StatusCode))
	}
	return nil
}

// Me fetches the current profile for the given access token. Used for
// explicit revalidation after hydrating from disk.
func (c *Client) Me(ctx context.Context, accessToken string) (*users.User, error) {
	if accessToken == "" {
		return nil, NotAuthenticatedErr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[authapi.Me] NewRequest")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[authapi.Me] Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, NotAuthenticatedErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Wrap(UnexpectedStatusErr, fmt.Sprintf("[authapi.Me] status %d", resp.StatusCode))
	}

	var user users.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(MalformedResponseErr, "[authapi.Me] decode")
	}
	return &user, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, accessToken string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.httpClient.Do(req)
}

func decodeTokenEnvelope(body io.Reader, caller string) (*oauth2.Token, *users.User, error) {
	var envelope tokenEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, nil, errors.Wrap(MalformedResponseErr, caller+" decode")
	}
	if envelope.AccessToken == "" || envelope.User == nil {
		return nil, nil, errors.Wrap(MalformedResponseErr, caller+" missing token or user")
	}
	return buildToken(envelope.AccessToken, envelope.RefreshToken), envelope.User, nil
}

// buildToken assembles the oauth2 token pair, deriving Expiry from the access
// token's exp claim when the token is a decodable JWT.
func buildToken(accessToken, refreshToken string) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	if expiry, err := TokenExpiry(accessToken); err == nil {
		token.Expiry = expiry
	} else {
		log.Debug().Err(err).Msg("access token expiry not decodable, leaving unset")
	}
	return token
}
