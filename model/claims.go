package model

import "github.com/golang-jwt/jwt/v5"

// AppClaims is the access-token claim set: registered claims plus the session
// linkage and the granted scope list.
type AppClaims struct {
	SessionID string   `json:"session_id"`
	Scopes    []string `json:"scopes"`
	jwt.RegisteredClaims
}
