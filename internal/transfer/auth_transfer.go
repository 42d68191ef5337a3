package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims carries the resolved identity this service trusts: the
// session layer in front of it has already checked membership.
type CustomClaims struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	jwt.RegisteredClaims
}
