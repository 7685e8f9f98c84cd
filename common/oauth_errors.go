// file: common/oauth_errors.go

package common

import (
	"encoding/json"
	"jobagent-api/logger"
	"net/http"

	"github.com/sirupsen/logrus"
)

// OAuth error codes surfaced to clients, RFC 6749 style plus the two
// service-specific conditions.
const (
	ErrInvalidRequest       = "invalid_request"
	ErrInvalidClient        = "invalid_client"
	ErrInvalidGrant         = "invalid_grant"
	ErrInvalidScope         = "invalid_scope"
	ErrSessionLimitExceeded = "session_limit_exceeded"
	ErrAccessDenied         = "access_denied"
	ErrServerError          = "server_error"
	ErrTokenMissing         = "token_missing"
	ErrTokenExpired         = "token_expired"
	ErrInvalidToken         = "invalid_token"
	ErrInsufficientScope    = "insufficient_scope"
)

// OAuthError is the RFC 6749 error body. Unlike AppError it keeps the OAuth
// error code separate from the HTTP status.
type OAuthError struct {
	Status      int    `json:"-"`
	ErrorCode   string `json:"error"`
	Description string `json:"error_description"`
	Err         error  `json:"-"`
}

func (e *OAuthError) Error() string {
	return e.ErrorCode + ": " + e.Description
}

func NewOAuthError(status int, code, description string, err error) *OAuthError {
	return &OAuthError{
		Status:      status,
		ErrorCode:   code,
		Description: description,
		Err:         err,
	}
}

func (e *OAuthError) Send(w http.ResponseWriter) {
	if e.Err != nil {
		logger.Log.WithFields(logrus.Fields{
			"status_code": e.Status,
			"oauth_error": e.ErrorCode,
		}).WithError(e.Err).Error(e.Description)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e)
}
