package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chamapesa/go-chama-client/transport"
)

// fakeSession is a minimal transport.Session with scripted refresh behavior.
type fakeSession struct {
	lock         sync.Mutex
	token        string
	refreshedTo  string
	refreshErr   error
	refreshCalls int
}

func (fs *fakeSession) AccessToken() string {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.token
}

func (fs *fakeSession) Refresh(ctx context.Context) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.refreshCalls++
	if fs.refreshErr != nil {
		fs.token = "" // a real manager tears the session down
		return "", fs.refreshErr
	}
	fs.token = fs.refreshedTo
	return fs.refreshedTo, nil
}

func (fs *fakeSession) calls() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.refreshCalls
}

func newClient(session transport.Session) *http.Client {
	return transport.NewHTTPClient(session, 5*time.Second)
}

func TestAttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newClient(&fakeSession{token: "T1"})
	resp, err := client.Get(server.URL + "/groups")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "Bearer T1", gotAuth)
	require.NotEmpty(t, gotRequestID)
}

func TestNoHeaderBeforeLogin(t *testing.T) {
	var sawHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["Authorization"]
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	session := &fakeSession{token: ""}
	client := newClient(session)
	resp, err := client.Get(server.URL + "/groups")
	require.NoError(t, err)
	resp.Body.Close()

	require.False(t, sawHeader)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, session.calls(), "unauthenticated 401 must not trigger refresh")
}

func TestRefreshAndRetryOn401(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		tokens = append(tokens, auth)
		if auth != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	session := &fakeSession{token: "T1", refreshedTo: "T2"}
	client := newClient(session)

	resp, err := client.Get(server.URL + "/groups")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, "caller sees the retried result, not the 401")
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.Equal(t, []string{"Bearer T1", "Bearer T2"}, tokens)
	require.Equal(t, 1, session.calls())
}

func TestAtMostOneRetry(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	session := &fakeSession{token: "T1", refreshedTo: "T2"}
	client := newClient(session)

	resp, err := client.Get(server.URL + "/groups")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 2, requests, "original request plus exactly one retry")
	require.Equal(t, 1, session.calls())
}

func TestRefreshFailurePropagatesOriginal401(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	session := &fakeSession{token: "T1", refreshErr: errors.New("session expired")}
	client := newClient(session)

	resp, err := client.Get(server.URL + "/loans")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, requests, "no retry after a failed refresh")
	require.Equal(t, 1, session.calls())
}

func TestNonAuthFailuresPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	session := &fakeSession{token: "T1", refreshedTo: "T2"}
	client := newClient(session)

	resp, err := client.Get(server.URL + "/groups")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Zero(t, session.calls(), "5xx must not trigger refresh")
}

func TestRetryOfBodylessRequest(t *testing.T) {
	var bodyLens []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodyLens = append(bodyLens, len(body))
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session := &fakeSession{token: "T1", refreshedTo: "T2"}
	client := newClient(session)

	// GET carries no body, so there is nothing to rebuild on the retry.
	resp, err := client.Get(server.URL + "/groups")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []int{0, 0}, bodyLens)
	require.Equal(t, 1, session.calls())
}

func TestRetryReplaysRequestBody(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	session := &fakeSession{token: "T1", refreshedTo: "T2"}
	client := newClient(session)

	resp, err := client.Post(server.URL+"/contributions", "application/json", strings.NewReader(`{"amount":500}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, []string{`{"amount":500}`, `{"amount":500}`}, bodies)
}
