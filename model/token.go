// file: model/token.go

package model

import "time"

// RefreshToken holds the persisted form of an opaque refresh token. Only the
// SHA-256 hash of the secret is ever stored; the plaintext is handed to the
// client exactly once at mint time.
type RefreshToken struct {
	ID        int        `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"` // The hash is not exposed in JSON responses.
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	RotatedTo *int       `json:"rotated_to,omitempty"` // Successor token id once rotated.
	CreatedAt time.Time  `json:"created_at"`
}

// Redeemable reports whether the token may still be exchanged for a new pair.
// A token that is revoked or rotated is conclusively dead; presenting one is
// treated as a replay by the service layer.
func (t *RefreshToken) Redeemable(now time.Time) bool {
	return t.RevokedAt == nil && t.RotatedTo == nil && now.Before(t.ExpiresAt)
}

// Replayed reports whether the token was already consumed or revoked.
func (t *RefreshToken) Replayed() bool {
	return t.RevokedAt != nil || t.RotatedTo != nil
}
