// file: handler/identity.go

package handler

import (
	"errors"
	"jobagent-api/common"
	"jobagent-api/model"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TrustedUserHeader carries the upstream-verified user identifier on surfaces
// that sit behind the identity provider (authorize, consent check, webhooks).
const TrustedUserHeader = "X-Auth-User-Id"

// Identity sources.
const (
	SourceBearer   = "bearer"
	SourceInternal = "internal"
)

// ITokenValidator is the slice of the authorization service the identity
// layer needs.
type ITokenValidator interface {
	ValidateAccessToken(token string) (*model.AppClaims, error)
}

// CallerIdentity is the resolved identity of a request, independent of how it
// authenticated. Handlers depend on this, not on header-presence branching.
type CallerIdentity struct {
	UserID    string
	SessionID string
	Scopes    []string
	Source    string
}

// IdentityResolver resolves a caller identity from a request, or explains why
// it cannot.
type IdentityResolver interface {
	Resolve(r *http.Request) (*CallerIdentity, *common.OAuthError)
}

// BearerResolver authenticates via the Authorization header and the token
// codec.
type BearerResolver struct {
	Validator ITokenValidator
}

func (br *BearerResolver) Resolve(r *http.Request) (*CallerIdentity, *common.OAuthError) {
	token, oerr := bearerToken(r)
	if oerr != nil {
		return nil, oerr
	}

	claims, err := br.Validator.ValidateAccessToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.NewOAuthError(http.StatusUnauthorized, common.ErrTokenExpired, "access token expired", nil)
		}
		return nil, common.NewOAuthError(http.StatusUnauthorized, common.ErrInvalidToken, "access token invalid", nil)
	}

	return &CallerIdentity{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Scopes:    claims.Scopes,
		Source:    SourceBearer,
	}, nil
}

// TrustedHeaderResolver accepts the upstream-verified user header. The
// identity carries no scopes: it represents the human user, not an agent
// grant.
type TrustedHeaderResolver struct{}

func (tr *TrustedHeaderResolver) Resolve(r *http.Request) (*CallerIdentity, *common.OAuthError) {
	userID := strings.TrimSpace(r.Header.Get(TrustedUserHeader))
	if userID == "" {
		return nil, common.NewOAuthError(http.StatusUnauthorized, common.ErrTokenMissing, "no verified user identity", nil)
	}
	return &CallerIdentity{UserID: userID, Source: SourceInternal}, nil
}

// ChainResolver tries each resolver in order and returns the first success.
// On total failure it reports the first resolver's error, which for the
// bearer-first chains used here gives the most useful diagnostic.
type ChainResolver struct {
	Resolvers []IdentityResolver
}

func (cr *ChainResolver) Resolve(r *http.Request) (*CallerIdentity, *common.OAuthError) {
	var firstErr *common.OAuthError
	for _, resolver := range cr.Resolvers {
		identity, oerr := resolver.Resolve(r)
		if oerr == nil {
			return identity, nil
		}
		if firstErr == nil {
			firstErr = oerr
		}
	}
	return nil, firstErr
}

func bearerToken(r *http.Request) (string, *common.OAuthError) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", common.NewOAuthError(http.StatusUnauthorized, common.ErrTokenMissing, "Authorization header is required", nil)
	}

	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
		return "", common.NewOAuthError(http.StatusUnauthorized, common.ErrTokenMissing, "Invalid authorization header format", nil)
	}
	return headerParts[1], nil
}
