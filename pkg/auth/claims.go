package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   string
	Name     string
	Username string
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. Name and
// username default the buyer identity during selection and checkout.
type AccessTokenClaims struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}
