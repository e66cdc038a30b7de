package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the backend's JWT claims the client relies on.
type Claims struct {
	UserID    int64
	Email     string
	ExpiresAt time.Time
}

// ParseClaims decodes a bearer token without verifying its signature.
// The client cannot verify tokens; it only reads them to avoid sending
// requests that are certain to fail and to learn who is logged in.
func ParseClaims(token string) (Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("parse token: unexpected claims type %T", parsed.Claims)
	}

	var out Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if email, ok := mc["email"].(string); ok {
		out.Email = email
	}
	switch id := mc["user_id"].(type) {
	case float64:
		out.UserID = int64(id)
	case string:
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			out.UserID = n
		}
	}
	return out, nil
}
