// file: model/code.go

package model

import "time"

// Supported PKCE challenge methods.
const (
	ChallengeMethodS256  = "S256"
	ChallengeMethodPlain = "plain"
)

// AuthorizationCode is the single-use grant artifact produced by the authorize
// step. It is never updated after UsedAt is set.
type AuthorizationCode struct {
	ID                  int        `json:"id"`
	Code                string     `json:"-"` // High-entropy opaque value, never logged.
	UserID              string     `json:"user_id"`
	RedirectURI         string     `json:"redirect_uri"`
	Scopes              []string   `json:"scopes"`
	CodeChallenge       string     `json:"-"`
	CodeChallengeMethod string     `json:"code_challenge_method"`
	ExpiresAt           time.Time  `json:"expires_at"`
	UsedAt              *time.Time `json:"used_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// Expired reports whether the code's lifetime has elapsed at the given instant.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
