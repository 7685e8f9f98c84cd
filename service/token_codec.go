// file: service/token_codec.go

package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"jobagent-api/logger"
	"jobagent-api/model"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Wire prefixes distinguish the two token kinds at a glance and keep either
// from being mistaken for a bare JWT.
const (
	AccessTokenPrefix  = "jaat_"
	RefreshTokenPrefix = "jart_"
	TokenTypeBearer    = "Bearer"
)

// ErrInvalidAccessToken is the single failure class VerifyAccessToken reports.
// Callers that need to distinguish expiry can unwrap with errors.Is against
// jwt.ErrTokenExpired; everything else is deliberately indistinct.
var ErrInvalidAccessToken = errors.New("invalid or expired access token")

// TokenCodec mints and verifies access tokens and generates the opaque
// refresh-token and authorization-code material. The signing key is parsed
// once at construction and never reloaded.
type TokenCodec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
}

// NewTokenCodec parses the PEM-encoded RSA private key and returns a codec.
// A bad key is an error here, so startup can fail fast instead of deferring
// the problem to the first request.
func NewTokenCodec(privateKeyPEM []byte, issuer, audience string, accessTTL time.Duration) (*TokenCodec, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return &TokenCodec{
		privateKey: key,
		publicKey:  &key.PublicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
	}, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *TokenCodec) AccessTokenTTL() time.Duration {
	return c.accessTTL
}

// MintAccessToken signs a new access token for the subject, embedding the
// session id and the granted scopes. Returns the prefixed compact token and
// its expiry.
func (c *TokenCodec) MintAccessToken(userID, sessionID string, scopes []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.accessTTL)

	claims := &model.AppClaims{
		SessionID: sessionID,
		Scopes:    scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.privateKey)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to sign access token")
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}

	return AccessTokenPrefix + signed, expiresAt, nil
}

// VerifyAccessToken strips the token prefix, checks the signature against the
// codec's public key and validates issuer, audience and the time claims. Every
// failure collapses into ErrInvalidAccessToken.
func (c *TokenCodec) VerifyAccessToken(prefixed string) (*model.AppClaims, error) {
	raw, ok := strings.CutPrefix(prefixed, AccessTokenPrefix)
	if !ok {
		return nil, ErrInvalidAccessToken
	}

	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return c.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidAccessToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// NewRefreshToken generates an opaque refresh token. The plaintext is handed
// out exactly once; only the hash is stored.
func (c *TokenCodec) NewRefreshToken() (plaintext, hash string, err error) {
	secret, err := secureRandomString(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	plaintext = RefreshTokenPrefix + secret
	return plaintext, HashRefreshToken(plaintext), nil
}

// HashRefreshToken returns the one-way hash under which a refresh token is
// persisted and later looked up.
func HashRefreshToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// NewAuthorizationCode generates the opaque single-use grant code.
func (c *TokenCodec) NewAuthorizationCode() (string, error) {
	code, err := secureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}
	return code, nil
}

// S256Challenge computes the PKCE S256 challenge for a verifier.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE recomputes the challenge from the verifier using the method the
// code was created with and compares it to the stored challenge.
func VerifyPKCE(method, verifier, challenge string) bool {
	switch method {
	case model.ChallengeMethodS256:
		return subtle.ConstantTimeCompare([]byte(S256Challenge(verifier)), []byte(challenge)) == 1
	case model.ChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}

func secureRandomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
