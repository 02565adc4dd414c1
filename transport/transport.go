// Package transport is the single choke-point for authenticated HTTP calls.
// Every request gets the current bearer token attached; a 401 triggers the
// refresh-and-retry protocol with an explicit at-most-one-retry rule.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Session is the slice of the session manager the transport needs: the current
// bearer credential and a refresh operation. Refresh is expected to coalesce
// concurrent callers and to tear the session down itself when the refresh
// token is rejected.
type Session interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
}

// Request attempt numbering. The attempt is an explicit parameter rather than
// a flag smuggled on the request, so the retry decision has no hidden coupling
// to call sites.
const (
	firstAttempt   = 0
	retriedAttempt = 1
)

const requestIDHeader = "X-Request-ID"

var _ http.RoundTripper = (*Authenticated)(nil)

// Authenticated is an http.RoundTripper that decorates requests with the
// session's bearer token. Wrap it in an http.Client and hand that client to
// every API call site.
type Authenticated struct {
	base    http.RoundTripper
	session Session
}

// Option modifies an Authenticated transport during construction.
type Option func(*Authenticated)

// WithBase sets the underlying RoundTripper (defaults to
// http.DefaultTransport).
func WithBase(base http.RoundTripper) Option {
	return func(t *Authenticated) {
		t.base = base
	}
}

// NewAuthenticated builds the transport around the given session.
func NewAuthenticated(session Session, options ...Option) *Authenticated {
	transport := &Authenticated{
		base:    http.DefaultTransport,
		session: session,
	}
	for _, opt := range options {
		opt(transport)
	}
	return transport
}

// NewHTTPClient is a convenience wrapper producing a ready-to-use client.
func NewHTTPClient(session Session, timeout time.Duration, options ...Option) *http.Client {
	return &http.Client{
		Transport: NewAuthenticated(session, options...),
		Timeout:   timeout,
	}
}

// RoundTrip attaches the bearer token and submits the request. On a 401 it
// refreshes the access token and resubmits exactly once; a second 401, or a
// failed refresh, surfaces the 401 unmodified. Non-auth failures (network
// errors, other status codes) pass through untouched.
func (t *Authenticated) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.roundTrip(req, firstAttempt, t.session.AccessToken())
}

func (t *Authenticated) roundTrip(req *http.Request, attempt int, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if attempt > firstAttempt && req.GetBody != nil {
		// The first attempt consumed the body; rebuild it for the retry.
		// Body-less requests (GetBody nil) are replayed as-is.
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}

	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		// Requests before any login go out bare; the server rejects them.
		out.Header.Del("Authorization")
	}
	if out.Header.Get(requestIDHeader) == "" {
		out.Header.Set(requestIDHeader, uuid.NewString())
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// 401 handling below. The retry rule is checked before anything else so a
	// request can never loop against an already-expired refresh token.
	if attempt >= retriedAttempt {
		return resp, nil
	}
	if token == "" {
		// Nothing to refresh; the caller was never authenticated.
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		log.Warn().Str("url", req.URL.Path).Msg("401 on non-replayable request body, cannot retry")
		return resp, nil
	}

	newToken, refreshErr := t.session.Refresh(req.Context())
	if refreshErr != nil {
		// Refresh failed: the session manager has already torn down state and
		// notified the expired handler. The original 401 is what the caller
		// sees.
		return resp, nil
	}

	drain(resp)
	log.Debug().Str("url", req.URL.Path).Msg("retrying request with refreshed token")
	return t.roundTrip(req, attempt+1, newToken)
}

// drain releases the first attempt's response before the retry reuses the
// connection.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
