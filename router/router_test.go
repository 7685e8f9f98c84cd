// file: router/router_test.go

package router_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"jobagent-api/config"
	"jobagent-api/handler"
	"jobagent-api/logger"
	"jobagent-api/model"
	"jobagent-api/router"
	"jobagent-api/service"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testClientID     = "agent-client"
	testClientSecret = "test-client-secret"
	testUserID       = "user-42"
	testRedirectURI  = "https://agent.example.com/callback"
)

func TestMain(m *testing.M) {
	logger.Init()

	hash, err := bcrypt.GenerateFromPassword([]byte(testClientSecret), bcrypt.MinCost)
	if err != nil {
		log.Fatalf("could not hash test client secret: %v", err)
	}
	config.AppConfig.OAuth.ClientID = testClientID
	config.AppConfig.OAuth.ClientSecretHash = string(hash)
	config.AppConfig.OAuth.AccessTokenTTL = 15 * time.Minute
	config.AppConfig.OAuth.RefreshTokenTTL = 720 * time.Hour
	config.AppConfig.OAuth.CodeTTL = 5 * time.Minute
	config.AppConfig.OAuth.MaxSessions = 5

	os.Exit(m.Run())
}

// In-memory repositories backing a full router. They mirror the SQL layer's
// contract, including sql.ErrNoRows on misses and the conditional semantics of
// Consume and Rotate.

type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.AuthorizationCode
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{codes: make(map[string]*model.AuthorizationCode)}
}

func (r *memCodeRepo) Create(code *model.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code.ID = len(r.codes) + 1
	code.CreatedAt = time.Now()
	r.codes[code.Code] = code
	return nil
}

func (r *memCodeRepo) GetByCode(code string) (*model.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.codes[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memCodeRepo) Consume(code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.codes[code]
	if !ok || stored.UsedAt != nil {
		return false, nil
	}
	now := time.Now()
	stored.UsedAt = &now
	return true, nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	nextID int
	tokens map[int]*model.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{nextID: 1, tokens: make(map[int]*model.RefreshToken)}
}

func (r *memTokenRepo) Create(token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = r.nextID
	r.nextID++
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = token
	return nil
}

func (r *memTokenRepo) GetByTokenHash(tokenHash string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenHash == tokenHash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memTokenRepo) GetByID(id int) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *memTokenRepo) Rotate(oldID int, successor *model.RefreshToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tokens[oldID]
	if !ok || old.RevokedAt != nil || old.RotatedTo != nil {
		return false, nil
	}
	successor.ID = r.nextID
	r.nextID++
	successor.CreatedAt = time.Now()
	r.tokens[successor.ID] = successor

	now := time.Now()
	old.RevokedAt = &now
	old.RotatedTo = &successor.ID
	return true, nil
}

func (r *memTokenRepo) RevokeByID(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[id]; ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (r *memTokenRepo) RevokeAllForUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	tokens   *memTokenRepo
}

func newMemSessionRepo(tokens *memTokenRepo) *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*model.Session), tokens: tokens}
}

func (r *memSessionRepo) Create(session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.CreatedAt = time.Now()
	session.LastActive = session.CreatedAt
	r.sessions[session.ID] = session
	return nil
}

func (r *memSessionRepo) GetByID(id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (r *memSessionRepo) GetByRefreshTokenID(tokenID int) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.RefreshTokenID == tokenID {
			copied := *session
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memSessionRepo) CountByUserID(userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memSessionRepo) ListByUserID(userID string) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, session := range r.sessions {
		if session.UserID == userID {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memSessionRepo) ListInfoByUserID(userID string) ([]*model.SessionInfo, error) {
	sessions, _ := r.ListByUserID(userID)
	var out []*model.SessionInfo
	for _, session := range sessions {
		info := &model.SessionInfo{
			ID:            session.ID,
			Scopes:        session.Scopes,
			GrantedScopes: session.GrantedScopes,
			CreatedAt:     session.CreatedAt,
			LastActive:    session.LastActive,
		}
		if token, err := r.tokens.GetByID(session.RefreshTokenID); err == nil {
			info.RefreshTokenExpiry = token.ExpiresAt
		}
		out = append(out, info)
	}
	return out, nil
}

func (r *memSessionRepo) UpdateRefreshToken(sessionID string, tokenID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return sql.ErrNoRows
	}
	session.RefreshTokenID = tokenID
	session.LastActive = time.Now()
	return nil
}

func (r *memSessionRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteAllForUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

type memJobRepo struct {
	jobs []*model.Job
}

func (r *memJobRepo) Search(query, location string, limit int) ([]*model.Job, error) {
	return r.jobs, nil
}

func (r *memJobRepo) GetByID(id int) (*model.Job, error) {
	for _, job := range r.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memApplicationRepo struct {
	mu   sync.Mutex
	apps []*model.Application
}

func (r *memApplicationRepo) Create(app *model.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app.ID = len(r.apps) + 1
	app.CreatedAt = time.Now()
	r.apps = append(r.apps, app)
	return nil
}

func (r *memApplicationRepo) ListByUserID(userID string) ([]*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Application
	for _, app := range r.apps {
		if app.UserID == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	codec, err := service.NewTokenCodec(keyPEM, "https://auth.test", "jobagent-api", 15*time.Minute)
	require.NoError(t, err)

	tokenRepo := newMemTokenRepo()
	sessionRepo := newMemSessionRepo(tokenRepo)
	oauthService := service.NewOAuthService(newMemCodeRepo(), sessionRepo, tokenRepo, codec, nil)

	jobRepo := &memJobRepo{jobs: []*model.Job{
		{ID: 1, Title: "Backend Engineer", Company: "Initech", Location: "Remote"},
	}}
	jobService := service.NewJobService(jobRepo)
	appService := service.NewApplicationService(&memApplicationRepo{}, jobRepo)

	return router.NewRouter(
		handler.NewOAuthHandler(oauthService),
		handler.NewActionHandler(jobService, appService),
		handler.NewWebhookHandler(oauthService),
		oauthService,
	)
}

func doJSON(t *testing.T, mux http.Handler, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func authorize(t *testing.T, mux http.Handler, scope, challenge string) string {
	t.Helper()
	target := fmt.Sprintf(
		"/oauth/authorize?response_type=code&client_id=%s&redirect_uri=%s&scope=%s&code_challenge=%s&code_challenge_method=S256",
		testClientID, testRedirectURI, scope, challenge,
	)
	rr := doJSON(t, mux, "GET", target, nil, map[string]string{handler.TrustedUserHeader: testUserID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Code)
	return resp.Data.Code
}

func exchange(t *testing.T, mux http.Handler, code, verifier string) *model.TokenResponse {
	t.Helper()
	rr := doJSON(t, mux, "POST", "/oauth/token", model.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code,
		CodeVerifier: verifier,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURI:  testRedirectURI,
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return &resp
}

func oauthErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		ErrorCode string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return payload.ErrorCode
}

func TestAuthorizationCodeFlow(t *testing.T) {
	mux := newTestRouter(t)

	verifier := "end-to-end-verifier-value"
	code := authorize(t, mux, "jobs:read", service.S256Challenge(verifier))
	tokens := exchange(t, mux, code, verifier)

	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(900), tokens.ExpiresIn)
	assert.Equal(t, "jobs:read", tokens.Scope)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	t.Run("token grants scoped access", func(t *testing.T) {
		rr := doJSON(t, mux, "GET", "/api/jobs", nil, map[string]string{"Authorization": "Bearer " + tokens.AccessToken})
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("missing scope is rejected", func(t *testing.T) {
		rr := doJSON(t, mux, "POST", "/api/applications",
			model.SubmitApplicationRequest{JobID: 1},
			map[string]string{"Authorization": "Bearer " + tokens.AccessToken})
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "insufficient_scope", oauthErrorCode(t, rr))
	})

	t.Run("no token is rejected", func(t *testing.T) {
		rr := doJSON(t, mux, "GET", "/api/jobs", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "token_missing", oauthErrorCode(t, rr))
	})

	t.Run("code cannot be redeemed twice", func(t *testing.T) {
		rr := doJSON(t, mux, "POST", "/oauth/token", model.TokenRequest{
			GrantType:    "authorization_code",
			Code:         code,
			CodeVerifier: verifier,
			ClientID:     testClientID,
			ClientSecret: testClientSecret,
			RedirectURI:  testRedirectURI,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid_grant", oauthErrorCode(t, rr))
	})
}

func TestRefreshRotationAndReplay(t *testing.T) {
	mux := newTestRouter(t)

	verifier := "rotation-verifier-value"
	code := authorize(t, mux, "applications:read", service.S256Challenge(verifier))
	first := exchange(t, mux, code, verifier)

	refresh := func(token string) *httptest.ResponseRecorder {
		return doJSON(t, mux, "POST", "/oauth/token", model.TokenRequest{
			GrantType:    "refresh_token",
			RefreshToken: token,
			ClientID:     testClientID,
			ClientSecret: testClientSecret,
		}, nil)
	}

	rr := refresh(first.RefreshToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var second model.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, "applications:read", second.Scope)

	// Replaying the rotated token fails and tears down the whole account.
	rr = refresh(first.RefreshToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_grant", oauthErrorCode(t, rr))

	rr = refresh(second.RefreshToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_grant", oauthErrorCode(t, rr))

	rr = doJSON(t, mux, "GET", "/oauth/sessions", nil, map[string]string{handler.TrustedUserHeader: testUserID})
	require.Equal(t, http.StatusOK, rr.Code)
	var sessions struct {
		Data []model.SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
	assert.Empty(t, sessions.Data)
}

func TestSessionLimit(t *testing.T) {
	mux := newTestRouter(t)

	for i := 0; i < 5; i++ {
		verifier := fmt.Sprintf("limit-verifier-%d", i)
		code := authorize(t, mux, "jobs:read", service.S256Challenge(verifier))
		exchange(t, mux, code, verifier)
	}

	target := fmt.Sprintf(
		"/oauth/authorize?response_type=code&client_id=%s&redirect_uri=%s&scope=jobs:read&code_challenge=%s&code_challenge_method=S256",
		testClientID, testRedirectURI, service.S256Challenge("one-too-many"),
	)
	rr := doJSON(t, mux, "GET", target, nil, map[string]string{handler.TrustedUserHeader: testUserID})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "session_limit_exceeded", oauthErrorCode(t, rr))
}

func TestRevokeAndWebhook(t *testing.T) {
	mux := newTestRouter(t)

	verifier := "revoke-verifier-value"
	code := authorize(t, mux, "jobs:read", service.S256Challenge(verifier))
	tokens := exchange(t, mux, code, verifier)

	rr := doJSON(t, mux, "GET", "/oauth/sessions", nil, map[string]string{"Authorization": "Bearer " + tokens.AccessToken})
	require.Equal(t, http.StatusOK, rr.Code)
	var sessions struct {
		Data []model.SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
	require.Len(t, sessions.Data, 1)

	rr = doJSON(t, mux, "POST", "/oauth/revoke",
		model.RevokeRequest{SessionID: sessions.Data[0].ID},
		map[string]string{"Authorization": "Bearer " + tokens.AccessToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// The revoked session's refresh token no longer redeems.
	rr = doJSON(t, mux, "POST", "/oauth/token", model.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: tokens.RefreshToken,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_grant", oauthErrorCode(t, rr))

	t.Run("user deleted webhook drops everything", func(t *testing.T) {
		verifier := "webhook-verifier-value"
		code := authorize(t, mux, "jobs:read", service.S256Challenge(verifier))
		exchange(t, mux, code, verifier)

		rr := doJSON(t, mux, "POST", "/webhooks/user-deleted",
			model.UserDeletedWebhook{Event: "user.deleted", UserID: testUserID}, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		rr = doJSON(t, mux, "GET", "/oauth/sessions", nil, map[string]string{handler.TrustedUserHeader: testUserID})
		require.Equal(t, http.StatusOK, rr.Code)
		var after struct {
			Data []model.SessionInfo `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &after))
		assert.Empty(t, after.Data)
	})
}

func TestConsentCheckEndpoint(t *testing.T) {
	mux := newTestRouter(t)

	verifier := "consent-verifier-value"
	code := authorize(t, mux, "jobs:read+applications:read", service.S256Challenge(verifier))
	exchange(t, mux, code, verifier)

	rr := doJSON(t, mux, "GET", "/oauth/consent-check?scopes=jobs:read", nil,
		map[string]string{handler.TrustedUserHeader: testUserID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.ConsentCheckResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Granted)
	assert.Equal(t, 1, resp.MatchingCount)
	assert.ElementsMatch(t, []string{"jobs:read", "applications:read"}, resp.GrantedScopes)

	rr = doJSON(t, mux, "GET", "/oauth/consent-check?scopes=applications:write", nil,
		map[string]string{handler.TrustedUserHeader: testUserID})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Granted)
}
