// file: handler/oauth_handler.go

package handler

import (
	"encoding/json"
	"jobagent-api/common"
	"jobagent-api/logger"
	"jobagent-api/model"
	"jobagent-api/service"
	"net/http"
	"strings"
)

// OAuthHandler exposes the OAuth endpoints. Session management accepts either
// a bearer access token or the trusted internal header through the resolver
// chain; the authorize and consent surfaces are trusted-header only.
type OAuthHandler struct {
	service         *service.OAuthService
	sessionResolver IdentityResolver
	trustedResolver IdentityResolver
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(svc *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{
		service: svc,
		sessionResolver: &ChainResolver{Resolvers: []IdentityResolver{
			&BearerResolver{Validator: svc},
			&TrustedHeaderResolver{},
		}},
		trustedResolver: &TrustedHeaderResolver{},
	}
}

// Authorize godoc
// @Summary      Issue an authorization code
// @Description  Validates the requested scopes and the per-user session limit, then issues a single-use code.
// @Tags         oauth
// @Produce      json
// @Param        response_type          query  string  true   "Must be code"
// @Param        client_id              query  string  true   "Registered client id"
// @Param        redirect_uri           query  string  true   "Redirect URI"
// @Param        scope                  query  string  true   "Space-separated scopes"
// @Param        state                  query  string  false  "Opaque client state"
// @Param        code_challenge         query  string  true   "PKCE challenge"
// @Param        code_challenge_method  query  string  false  "S256 or plain"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  common.OAuthError
// @Router       /oauth/authorize [get]
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) error {
	identity, oerr := h.trustedResolver.Resolve(r)
	if oerr != nil {
		return oerr
	}

	q := r.URL.Query()
	if q.Get("response_type") != "code" {
		return common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "response_type must be code", nil)
	}

	code, err := h.service.Authorize(service.AuthorizeInput{
		UserID:              identity.UserID,
		RedirectURI:         q.Get("redirect_uri"),
		Scopes:              model.SplitScopes(q.Get("scope")),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	})
	if err != nil {
		return err
	}

	writeData(w, http.StatusOK, map[string]string{"code": code})
	return nil
}

// Token godoc
// @Summary      Exchange a code or refresh token for an access token
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Param        request  body  model.TokenRequest  true  "Token request"
// @Success      200  {object}  model.TokenResponse
// @Failure      400  {object}  common.OAuthError
// @Router       /oauth/token [post]
func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) error {
	var req model.TokenRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithField("grant_type", req.GrantType)
	log.Info("Token request received")

	var (
		resp *model.TokenResponse
		err  error
	)
	switch req.GrantType {
	case "authorization_code":
		if req.Code == "" || req.CodeVerifier == "" {
			return common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "code and code_verifier are required", nil)
		}
		resp, err = h.service.ExchangeCode(req.Code, req.CodeVerifier, req.ClientID, req.ClientSecret, req.RedirectURI)
	case "refresh_token":
		if req.RefreshToken == "" {
			return common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "refresh_token is required", nil)
		}
		resp, err = h.service.Refresh(req.RefreshToken, req.ClientID, req.ClientSecret)
	default:
		return common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "unsupported grant_type", nil)
	}
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
	return nil
}

// Revoke godoc
// @Summary      Revoke one session
// @Tags         oauth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  model.RevokeRequest  true  "Session to revoke"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  common.OAuthError
// @Router       /oauth/revoke [post]
func (h *OAuthHandler) Revoke(w http.ResponseWriter, r *http.Request) error {
	identity, oerr := h.sessionResolver.Resolve(r)
	if oerr != nil {
		return oerr
	}

	var req model.RevokeRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.service.Revoke(req.SessionID, identity.UserID); err != nil {
		return err
	}

	writeData(w, http.StatusOK, map[string]bool{"revoked": true})
	return nil
}

// Sessions godoc
// @Summary      List the caller's sessions
// @Tags         oauth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /oauth/sessions [get]
func (h *OAuthHandler) Sessions(w http.ResponseWriter, r *http.Request) error {
	identity, oerr := h.sessionResolver.Resolve(r)
	if oerr != nil {
		return oerr
	}

	infos, err := h.service.ListSessions(identity.UserID)
	if err != nil {
		return err
	}
	if infos == nil {
		infos = []*model.SessionInfo{}
	}

	writeData(w, http.StatusOK, infos)
	return nil
}

// ConsentCheck reports whether the user already consented to a superset of
// the requested scopes, so the consent UI can be skipped.
func (h *OAuthHandler) ConsentCheck(w http.ResponseWriter, r *http.Request) error {
	identity, oerr := h.trustedResolver.Resolve(r)
	if oerr != nil {
		return oerr
	}

	var requested []string
	for _, s := range strings.Split(r.URL.Query().Get("scopes"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			requested = append(requested, s)
		}
	}
	if len(requested) == 0 {
		return common.NewOAuthError(http.StatusBadRequest, common.ErrInvalidRequest, "scopes query parameter is required", nil)
	}

	resp, err := h.service.CheckConsent(identity.UserID, requested)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
	return nil
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response body")
	}
}
