// file: model/request.go

package model

// TokenRequest defines the payload for the token endpoint, covering both the
// authorization_code and refresh_token grants. Grant-specific fields are
// checked in the handler because validator tags cannot express the
// conditionality across the two grant types.
type TokenRequest struct {
	GrantType    string `json:"grant_type" validate:"required,oneof=authorization_code refresh_token"`
	Code         string `json:"code,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RevokeRequest defines the payload for revoking a single session.
type RevokeRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// SubmitApplicationRequest defines the payload for submitting a job application.
type SubmitApplicationRequest struct {
	JobID int    `json:"job_id" validate:"required,gt=0"`
	Note  string `json:"note" validate:"max=2000"`
}

// UserDeletedWebhook is the upstream identity provider's deletion notification.
type UserDeletedWebhook struct {
	Event  string `json:"event" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
}

// TokenResponse is the success body of the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// ConsentCheckResponse reports whether the user already granted a superset of
// the requested scopes.
type ConsentCheckResponse struct {
	Granted         bool     `json:"granted"`
	MatchingCount   int      `json:"matching_session_count"`
	GrantedScopes   []string `json:"granted_scopes"`
	RequestedScopes []string `json:"requested_scopes"`
}
