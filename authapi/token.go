package authapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// The client never verifies token signatures; that is the server's job. These
// helpers only read public claims out of the access token for display and for
// deciding when a refresh is likely to be needed.
var unverifiedParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// TokenExpiry returns the exp claim of a JWT access token.
func TokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "[TokenExpiry] ParseUnverified")
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, errors.New("[TokenExpiry] no exp claim")
	}
	return expiry.Time, nil
}

// TokenSubject returns the sub claim of a JWT access token.
func TokenSubject(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(raw, claims); err != nil {
		return "", errors.Wrap(err, "[TokenSubject] ParseUnverified")
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return "", errors.Wrap(err, "[TokenSubject] GetSubject")
	}
	return subject, nil
}
