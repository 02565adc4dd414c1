// Package credentials persists the session's token pair and user profile
// snapshot between process runs, the way the dashboard keeps them in
// origin-scoped browser storage. It holds no business logic: expiry checking
// and refresh belong to the transport and session layers.
package credentials

import (
	"golang.org/x/oauth2"

	"github.com/chamapesa/go-chama-client/users"
)

// Credentials is the persisted triple: token pair plus profile snapshot.
type Credentials struct {
	Token *oauth2.Token
	User  *users.User
}

// Store is the durable key-value persistence behind the session.
//
// Save overwrites all entries; if it returns an error the caller must treat the
// whole save as failed. Load tolerates malformed or partial state on disk by
// clearing it and reporting "no session" (nil, nil) rather than failing.
type Store interface {
	Save(token *oauth2.Token, user *users.User) error
	Load() (*Credentials, error)
	Clear() error
}
