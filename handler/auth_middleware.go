package handler

import (
	"context"
	"jobagent-api/common"
	"jobagent-api/model"
	"net/http"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	SessionIDKey contextKey = "sessionID"
	ScopesKey    contextKey = "scopes"
)

// AuthMiddleware is the per-request bearer gate. It verifies the access token
// and populates the request context with the subject, session id and scopes.
// Absence of a usable header is token_missing; a verification failure caused
// by expiry is token_expired; everything else is invalid_token.
func AuthMiddleware(validator ITokenValidator) func(http.Handler) http.Handler {
	resolver := &BearerResolver{Validator: validator}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, oerr := resolver.Resolve(r)
			if oerr != nil {
				oerr.Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, identity.UserID)
			ctx = context.WithValue(ctx, SessionIDKey, identity.SessionID)
			ctx = context.WithValue(ctx, ScopesKey, identity.Scopes)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope gates a handler on one specific scope. It must run after
// AuthMiddleware has populated the auth context.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scopes, ok := r.Context().Value(ScopesKey).([]string)
			if !ok || !model.ScopesContain(scopes, scope) {
				common.NewOAuthError(http.StatusForbidden, common.ErrInsufficientScope,
					"token does not grant scope "+scope, nil).Send(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
