package etuition

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStale reports whether a persisted bearer token is already expired and
// not worth attaching optimistically at page load. The signature is not
// checked here; only the backend can verify it. Tokens that do not parse as
// JWTs or carry no expiry are treated as usable and left for the backend to
// reject.
func TokenStale(tokenString string) bool {
	if tokenString == "" {
		return true
	}
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().After(exp.Time)
}
