package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims decodes the claims of a token without verifying its signature.
// It is meant for showing who is signed in, never for authorization.
func Claims(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Username picks the most readable identity claim.
func Username(claims jwt.MapClaims) string {
	for _, key := range []string{"preferred_username", "upn", "email", "name", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
