// file: model/event.go

package model

import "time"

// Authorization lifecycle event types published to the audit stream.
const (
	EventAuthorize          = "authorize"
	EventTokenExchanged     = "token_exchanged"
	EventTokenRefreshed     = "token_refreshed"
	EventReplayDetected     = "replay_detected"
	EventSessionRevoked     = "session_revoked"
	EventAllSessionsRevoked = "all_sessions_revoked"
)

// AuditEvent is one authorization lifecycle occurrence. Events are published
// fire-and-forget; the consumer persists them append-only.
type AuditEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
