package config

import "time"

type SessionConfig interface {
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetRequestTimeout() time.Duration {
	return 30 * time.Second
}

// GetRefreshTimeout bounds the token refresh round-trip; hitting it is
// treated as a refresh failure, not a reason to retry.
func (Session) GetRefreshTimeout() time.Duration {
	return 10 * time.Second
}
