package handler

import (
	"errors"
	"jobagent-api/common"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// OAuthErrorHandlingMiddleware adapts handlers that may fail with either an
// RFC 6749 error body or a plain AppError. Anything unrecognized becomes a
// generic 500.
func OAuthErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := next(w, r)
		if err == nil {
			return
		}

		var oauthErr *common.OAuthError
		if errors.As(err, &oauthErr) {
			oauthErr.Send(w)
			return
		}
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			appErr.Send(w)
			return
		}
		common.NewAppError(http.StatusInternalServerError, "Internal server error", err).Send(w)
	}
}
