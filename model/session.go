// file: model/session.go

package model

import "time"

// Session is one active consent grant for a (user, client) pair.
//
// Scopes holds the scopes active right now; GrantedScopes is the historical
// superset of everything the user ever consented to and never shrinks.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Scopes         []string  `json:"scopes"`
	GrantedScopes  []string  `json:"granted_scopes"`
	RefreshTokenID int       `json:"-"` // Currently valid refresh token; replaced on rotation.
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
}

// SessionInfo is the session-list wire representation, which additionally
// surfaces the linked refresh token's expiry.
type SessionInfo struct {
	ID                 string    `json:"id"`
	Scopes             []string  `json:"scopes"`
	GrantedScopes      []string  `json:"granted_scopes"`
	CreatedAt          time.Time `json:"created_at"`
	LastActive         time.Time `json:"last_active"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expires_at"`
}
