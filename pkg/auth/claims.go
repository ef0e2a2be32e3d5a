package auth

import "github.com/golang-jwt/jwt/v5"

const RoleAdmin = "admin"

// AccessTokenClaims is the admin token shape minted by the identity
// service and verified here.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AccessTokenPayload is the input for minting, used by tests and dev tooling.
type AccessTokenPayload struct {
	UserID string
	Role   string
	JTI    string
}
