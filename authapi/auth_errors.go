package authapi

import "errors"

var (
	InvalidCredentialsErr   = errors.New("invalid credentials")
	SessionExpiredErr       = errors.New("session expired")
	RegistrationRejectedErr = errors.New("registration rejected")
	UnexpectedStatusErr     = errors.New("unexpected response status")
	MalformedResponseErr    = errors.New("malformed response body")
	NotAuthenticatedErr     = errors.New("not authenticated")
)
