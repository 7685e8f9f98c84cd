// file: service/oauth_service.go

package service

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"jobagent-api/common"
	"jobagent-api/config"
	"jobagent-api/logger"
	"jobagent-api/model"
	"jobagent-api/repository"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// OAuthService orchestrates the authorization-code grant: authorize, code
// exchange, refresh rotation and revocation, plus the session and consent
// queries. All state lives in the repositories; the service itself is
// request-scoped and safe for concurrent use.
type OAuthService struct {
	codes    repository.ICodeRepository
	sessions repository.ISessionRepository
	tokens   repository.ITokenRepository
	codec    *TokenCodec
	events   IEventPublisher

	clientID         string
	clientSecretHash string
	redirectURI      string
	codeTTL          time.Duration
	refreshTTL       time.Duration
	maxSessions      int
}

// NewOAuthService wires the service from its dependencies and the loaded
// OAuth configuration.
func NewOAuthService(
	codes repository.ICodeRepository,
	sessions repository.ISessionRepository,
	tokens repository.ITokenRepository,
	codec *TokenCodec,
	events IEventPublisher,
) *OAuthService {
	cfg := config.AppConfig.OAuth
	return &OAuthService{
		codes:            codes,
		sessions:         sessions,
		tokens:           tokens,
		codec:            codec,
		events:           events,
		clientID:         cfg.ClientID,
		clientSecretHash: cfg.ClientSecretHash,
		redirectURI:      cfg.RedirectURI,
		codeTTL:          cfg.CodeTTL,
		refreshTTL:       cfg.RefreshTokenTTL,
		maxSessions:      cfg.MaxSessions,
	}
}

// AuthorizeInput carries the authorize-step parameters. The user identifier
// was verified upstream; this service does not perform primary authentication.
type AuthorizeInput struct {
	UserID              string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Authorize validates the requested scopes and the per-user session limit,
// then persists a short-lived single-use authorization code. No session or
// token exists until the code is exchanged.
func (s *OAuthService) Authorize(in AuthorizeInput) (string, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": in.UserID,
		"scopes":  in.Scopes,
	})

	if in.UserID == "" || in.RedirectURI == "" {
		return "", common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "user and redirect_uri are required", nil)
	}
	if in.CodeChallenge == "" {
		return "", common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "code_challenge is required", nil)
	}
	if s.redirectURI != "" && in.RedirectURI != s.redirectURI {
		return "", common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "redirect_uri is not registered", nil)
	}

	method := in.CodeChallengeMethod
	if method == "" {
		method = model.ChallengeMethodS256
	}
	if method != model.ChallengeMethodS256 && method != model.ChallengeMethodPlain {
		return "", common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "unsupported code_challenge_method", nil)
	}

	if unknown, ok := model.ValidateScopes(in.Scopes); !ok {
		desc := "at least one scope is required"
		if unknown != "" {
			desc = fmt.Sprintf("unknown scope %q", unknown)
		}
		return "", common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidScope, desc, nil)
	}

	count, err := s.sessions.CountByUserID(in.UserID)
	if err != nil {
		return "", common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not count sessions", err)
	}
	if count >= s.maxSessions {
		log.Warn("Session limit reached, rejecting authorization request")
		return "", common.NewOAuthError(http.StatusBadRequest, common.ErrSessionLimitExceeded,
			fmt.Sprintf("user already has %d active sessions; revoke one to continue", count), nil)
	}

	codeValue, err := s.codec.NewAuthorizationCode()
	if err != nil {
		return "", common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not generate code", err)
	}

	code := &model.AuthorizationCode{
		Code:                codeValue,
		UserID:              in.UserID,
		RedirectURI:         in.RedirectURI,
		Scopes:              in.Scopes,
		CodeChallenge:       in.CodeChallenge,
		CodeChallengeMethod: method,
		ExpiresAt:           time.Now().Add(s.codeTTL),
	}
	if err := s.codes.Create(code); err != nil {
		return "", common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not persist code", err)
	}

	s.emit(model.EventAuthorize, in.UserID, "", map[string]string{
		"scopes": model.JoinScopes(in.Scopes),
	})
	log.Info("Authorization code issued")
	return codeValue, nil
}

// ExchangeCode redeems an authorization code for a session, a refresh token
// and an access token. The check order is deliberate: client credentials,
// code existence, prior use, expiry, redirect match, PKCE.
func (s *OAuthService) ExchangeCode(codeValue, codeVerifier, clientID, clientSecret, redirectURI string) (*model.TokenResponse, error) {
	if err := s.checkClient(clientID, clientSecret); err != nil {
		return nil, err
	}

	code, err := s.codes.GetByCode(codeValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "authorization code not found", nil)
		}
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not look up code", err)
	}
	if code.UsedAt != nil {
		return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "authorization code already used", nil)
	}
	if code.Expired(time.Now()) {
		return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "authorization code expired", nil)
	}
	if code.RedirectURI != redirectURI {
		return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "redirect_uri mismatch", nil)
	}
	if !VerifyPKCE(code.CodeChallengeMethod, codeVerifier, code.CodeChallenge) {
		return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "PKCE verification failed", nil)
	}

	// The conditional update is what makes double redemption lose: of two
	// concurrent exchanges, exactly one consumes the code.
	consumed, err := s.codes.Consume(codeValue)
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not consume code", err)
	}
	if !consumed {
		return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "authorization code already used", nil)
	}

	refreshPlain, refreshHash, err := s.codec.NewRefreshToken()
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not mint refresh token", err)
	}
	refresh := &model.RefreshToken{
		UserID:    code.UserID,
		TokenHash: refreshHash,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.tokens.Create(refresh); err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not persist refresh token", err)
	}

	session := &model.Session{
		ID:             uuid.NewString(),
		UserID:         code.UserID,
		Scopes:         code.Scopes,
		GrantedScopes:  code.Scopes,
		RefreshTokenID: refresh.ID,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not create session", err)
	}

	accessToken, _, err := s.codec.MintAccessToken(code.UserID, session.ID, session.Scopes)
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not mint access token", err)
	}

	s.emit(model.EventTokenExchanged, code.UserID, session.ID, map[string]string{
		"scopes": model.JoinScopes(session.Scopes),
	})
	logger.Log.WithFields(logrus.Fields{
		"user_id":    code.UserID,
		"session_id": session.ID,
	}).Info("Authorization code exchanged")

	return &model.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		RefreshToken: refreshPlain,
		Scope:        model.JoinScopes(session.Scopes),
	}, nil
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated or revoked is conclusive evidence of a replay; the response is the
// teardown of every token and session the user holds.
func (s *OAuthService) Refresh(refreshToken, clientID, clientSecret string) (*model.TokenResponse, error) {
	if err := s.checkClient(clientID, clientSecret); err != nil {
		return nil, err
	}

	stored, err := s.tokens.GetByTokenHash(HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "refresh token not found", nil)
		}
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not look up refresh token", err)
	}

	if stored.Replayed() {
		return nil, s.handleReplay(stored.UserID)
	}
	if !time.Now().Before(stored.ExpiresAt) {
		// Plain expiry is not a security signal; fail without the teardown.
		return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "refresh token expired", nil)
	}

	session, err := s.sessions.GetByRefreshTokenID(stored.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "no session for refresh token", nil)
		}
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not look up session", err)
	}

	successorPlain, successorHash, err := s.codec.NewRefreshToken()
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not mint refresh token", err)
	}
	successor := &model.RefreshToken{
		UserID:    stored.UserID,
		TokenHash: successorHash,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}

	rotated, err := s.tokens.Rotate(stored.ID, successor)
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not rotate refresh token", err)
	}
	if !rotated {
		// A concurrent refresh won the rotation; by now this presentation is
		// indistinguishable from a replay of a rotated token.
		return nil, s.handleReplay(stored.UserID)
	}

	if err := s.sessions.UpdateRefreshToken(session.ID, successor.ID); err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not relink session", err)
	}

	accessToken, _, err := s.codec.MintAccessToken(session.UserID, session.ID, session.Scopes)
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not mint access token", err)
	}

	s.emit(model.EventTokenRefreshed, session.UserID, session.ID, nil)
	logger.Log.WithFields(logrus.Fields{
		"user_id":    session.UserID,
		"session_id": session.ID,
	}).Info("Refresh token rotated")

	return &model.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		RefreshToken: successorPlain,
		Scope:        model.JoinScopes(session.Scopes),
	}, nil
}

// handleReplay tears down the whole account: a stolen, already-rotated
// refresh token means the rotation chain itself may be compromised, so every
// token is revoked and every session deleted.
func (s *OAuthService) handleReplay(userID string) error {
	log := logger.Log.WithField("user_id", userID)
	log.Warn("Refresh token replay detected, revoking all sessions for user")

	if err := s.tokens.RevokeAllForUser(userID); err != nil {
		log.WithError(err).Error("Failed to revoke tokens during replay teardown")
	}
	if err := s.sessions.DeleteAllForUser(userID); err != nil {
		log.WithError(err).Error("Failed to delete sessions during replay teardown")
	}

	s.emit(model.EventReplayDetected, userID, "", nil)
	// The caller sees a plain invalid_grant; the teardown is not advertised.
	return common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidGrant, "refresh token is no longer valid", nil)
}

// ValidateAccessToken verifies a prefixed access token and returns its claims.
func (s *OAuthService) ValidateAccessToken(token string) (*model.AppClaims, error) {
	return s.codec.VerifyAccessToken(token)
}

// Revoke tears down one session after verifying the caller owns it. A
// cross-user attempt fails loudly and deletes nothing.
func (s *OAuthService) Revoke(sessionID, userID string) error {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NewOAuthError(http.StatusNotFound, common.ErrInvalidRequest, "session not found", nil)
		}
		return common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not look up session", err)
	}
	if session.UserID != userID {
		logger.Log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
		}).Warn("Cross-user session revoke attempt rejected")
		return common.NewOAuthError(http.StatusForbidden, common.ErrAccessDenied, "session does not belong to caller", nil)
	}

	if err := s.tokens.RevokeByID(session.RefreshTokenID); err != nil {
		return common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not revoke refresh token", err)
	}
	if err := s.sessions.Delete(session.ID); err != nil {
		return common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not delete session", err)
	}

	s.emit(model.EventSessionRevoked, userID, session.ID, nil)
	return nil
}

// RevokeAllSessions unconditionally revokes every refresh token and deletes
// every session for the user. Invoked from explicit user action and from the
// upstream user-deleted webhook.
func (s *OAuthService) RevokeAllSessions(userID string) error {
	if err := s.tokens.RevokeAllForUser(userID); err != nil {
		return common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not revoke refresh tokens", err)
	}
	if err := s.sessions.DeleteAllForUser(userID); err != nil {
		return common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not delete sessions", err)
	}

	s.emit(model.EventAllSessionsRevoked, userID, "", nil)
	logger.Log.WithField("user_id", userID).Info("All sessions revoked for user")
	return nil
}

// ListSessions returns the user's sessions with their refresh-token expiry.
func (s *OAuthService) ListSessions(userID string) ([]*model.SessionInfo, error) {
	infos, err := s.sessions.ListInfoByUserID(userID)
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not list sessions", err)
	}
	return infos, nil
}

// CheckConsent reports whether the user already granted a superset of the
// requested scopes, how many sessions match, and the union of everything ever
// granted.
func (s *OAuthService) CheckConsent(userID string, requested []string) (*model.ConsentCheckResponse, error) {
	sessions, err := s.sessions.ListByUserID(userID)
	if err != nil {
		return nil, common.NewOAuthError(http.StatusInternalServerError, common.ErrServerError, "could not list sessions", err)
	}

	matching := 0
	var grantedLists [][]string
	for _, session := range sessions {
		grantedLists = append(grantedLists, session.GrantedScopes)
		if model.ScopesSuperset(session.GrantedScopes, requested) {
			matching++
		}
	}

	return &model.ConsentCheckResponse{
		Granted:         matching > 0,
		MatchingCount:   matching,
		GrantedScopes:   model.ScopeUnion(grantedLists...),
		RequestedScopes: requested,
	}, nil
}

// checkClient verifies the single registered client. The id comparison is
// constant-time; the secret is verified against its bcrypt hash.
func (s *OAuthService) checkClient(clientID, clientSecret string) error {
	idMatch := subtle.ConstantTimeCompare([]byte(clientID), []byte(s.clientID)) == 1
	secretErr := bcrypt.CompareHashAndPassword([]byte(s.clientSecretHash), []byte(clientSecret))
	if !idMatch || secretErr != nil {
		return common.NewOAuthError(http.StatusUnauthorized, common.ErrInvalidClient, "client authentication failed", nil)
	}
	return nil
}

func (s *OAuthService) emit(eventType, userID, sessionID string, metadata map[string]string) {
	emitEvent(s.events, &model.AuditEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		SessionID: sessionID,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
}
