package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// checkBearerExpiry inspects a bearer token that happens to be a JWT and
// rejects it up front if it has already expired, so a stale static token
// fails fast at Connect rather than surfacing as an opaque 401 on the
// first call. Tokens that are not JWTs (no two-dot structure) are opaque
// to this check and pass through unexamined.
func checkBearerExpiry(token string) error {
	if strings.Count(token, ".") != 2 {
		return nil
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Not a well-formed JWT after all; treat as an opaque token.
		return nil
	}

	expired, err := claims.GetExpirationTime()
	if err != nil || expired == nil {
		return nil
	}
	if expired.Before(time.Now()) {
		return fmt.Errorf("mcp: bearer token expired at %s", expired)
	}
	return nil
}
