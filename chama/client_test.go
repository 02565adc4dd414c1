package chama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chamapesa/go-chama-client/chama"
	"github.com/chamapesa/go-chama-client/internal/utils"
	"github.com/chamapesa/go-chama-client/transport"
	"github.com/chamapesa/go-chama-client/users"
)

func newTestClient(t *testing.T, handler http.Handler) *chama.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := chama.NewClient(server.URL, &http.Client{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestListGroups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "Umoja Savings", "status": "active", "target_amount": 100000},
			{"id": 2, "name": "Harambee Circle", "status": "completed", "target_amount": 50000},
		})
	})

	client := newTestClient(t, mux)
	groups, err := client.Groups.List(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "Umoja Savings", groups[0].Name)
	require.Equal(t, chama.GroupActive, groups[0].Status)
	require.Equal(t, float64(100000), groups[0].TargetAmount)
}

func TestCreateContribution(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contributions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chama.CreateContributionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(4), req.GroupID)
		require.Equal(t, float64(500), req.Amount)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id": 77, "group_id": 4, "amount": 500, "status": "pending", "receipt_number": "RCT-0077",
		})
	})

	client := newTestClient(t, mux)
	contribution, err := client.Contributions.Create(context.Background(), chama.CreateContributionRequest{
		GroupID: 4,
		Amount:  500,
		Note:    "march dues",
	})
	require.NoError(t, err)
	require.Equal(t, int64(77), contribution.ID)
	require.Equal(t, chama.ContributionPending, contribution.Status)
	require.Equal(t, "RCT-0077", contribution.ReceiptNumber)
}

func TestUpdateProfilePatchShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/profile", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		require.Equal(t, "new@example.com", raw["email"])
		require.NotContains(t, raw, "username", "nil fields must be omitted")

		json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "username": "alice", "email": "new@example.com", "role": "member",
		})
	})

	client := newTestClient(t, mux)
	user, err := client.Users.UpdateProfile(context.Background(), chama.UpdateProfileRequest{
		Email: utils.Ptr("new@example.com"),
	})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", user.Email)
	require.Equal(t, users.RoleMember, user.Role)
}

func TestStatusSentinels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/loans", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/groups/99", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, mux)

	_, err := client.Loans.List(context.Background())
	require.ErrorIs(t, err, chama.ForbiddenErr)

	_, err = client.Groups.Get(context.Background(), 99)
	require.ErrorIs(t, err, chama.NotFoundErr)
}

// staticSession drives the authenticated transport in integration tests.
type staticSession struct {
	lock         sync.Mutex
	token        string
	refreshedTo  string
	refreshCalls int
}

func (s *staticSession) AccessToken() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.token
}

func (s *staticSession) Refresh(ctx context.Context) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshCalls++
	s.token = s.refreshedTo
	return s.token, nil
}

func TestResourceCallRidesRefreshProtocol(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/investments", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 5, "group_id": 1, "name": "Treasury bills", "amount": 20000},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	session := &staticSession{token: "T1", refreshedTo: "T2"}
	httpClient := transport.NewHTTPClient(session, 5*time.Second)

	client, err := chama.NewClient(server.URL, httpClient)
	require.NoError(t, err)

	investments, err := client.Investments.List(context.Background())
	require.NoError(t, err, "expired token must be transparent to resource calls")
	require.Len(t, investments, 1)
	require.Equal(t, "Treasury bills", investments[0].Name)
	require.Equal(t, 1, session.refreshCalls)
}
