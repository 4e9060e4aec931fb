package oauth2

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAtFromJWT decodes accessToken's exp claim without verifying its
// signature and returns it as a time.Time. This is not an authentication
// check -- the token was already issued to this process by a trusted token
// endpoint over TLS -- it exists only as a fallback for fetchers whose token
// endpoint returns a JWT access token (RFC 9068) without a separate
// expires_in field, so Cache still has an expiry to key freshness on.
func ExpiresAtFromJWT(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
