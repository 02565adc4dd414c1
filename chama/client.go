// Package chama is the typed client for the chama platform's REST resources:
// groups, contributions, loans, investments, and member administration. All
// calls go through the authenticated transport, which owns bearer attachment
// and the refresh-on-401 protocol; this package only shapes requests and
// decodes responses.
package chama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	NotFoundErr     = errors.New("resource not found")
	ForbiddenErr    = errors.New("forbidden")
	UnauthorizedErr = errors.New("unauthorized")
)

// Client exposes one service per API resource.
type Client struct {
	baseURL    string
	httpClient *http.Client

	Groups        *GroupsService
	Contributions *ContributionsService
	Loans         *LoansService
	Investments   *InvestmentsService
	Users         *UsersService
}

// NewClient builds the resource client. httpClient should carry the
// transport.Authenticated round tripper; a plain client works but will never
// authenticate.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[chama.NewClient] baseURL is required")
	}
	if httpClient == nil {
		return nil, errors.New("[chama.NewClient] http client is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
	client.Groups = &GroupsService{client: client}
	client.Contributions = &ContributionsService{client: client}
	client.Loans = &LoansService{client: client}
	client.Investments = &InvestmentsService{client: client}
	client.Users = &UsersService{client: client}
	return client, nil
}

// get issues a GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// post issues a POST with a JSON body and decodes the response into out
// (which may be nil).
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// delete issues a DELETE.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[chama.do] marshal body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[chama.do] NewRequest")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[chama.do] Do")
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[chama.do] decode response")
	}
	return nil
}

// statusError maps non-2xx statuses onto the package sentinels. The 401 case
// means the transport already attempted its one refresh-and-retry and the
// server still refused.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return UnauthorizedErr
	case http.StatusForbidden:
		return ForbiddenErr
	case http.StatusNotFound:
		return NotFoundErr
	}
	message := readErrorMessage(resp.Body)
	return errors.New(fmt.Sprintf("[chama] status %d: %s", resp.StatusCode, message))
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return "unreadable error body"
	}
	if payload.Error != "" {
		return payload.Error
	}
	if payload.Message != "" {
		return payload.Message
	}
	return "no error detail"
}
