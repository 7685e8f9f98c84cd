// service/main_test.go
package service

import (
	"jobagent-api/config"
	"jobagent-api/logger"
	"log"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	testClientID     = "agent-client"
	testClientSecret = "test-client-secret"
)

// TestMain prepares the logger and the OAuth configuration the service
// constructor reads.
func TestMain(m *testing.M) {
	logger.Init()

	secretHash, err := bcrypt.GenerateFromPassword([]byte(testClientSecret), bcrypt.MinCost)
	if err != nil {
		log.Fatalf("could not hash test client secret: %v", err)
	}

	config.AppConfig.OAuth.ClientID = testClientID
	config.AppConfig.OAuth.ClientSecretHash = string(secretHash)
	config.AppConfig.OAuth.AccessTokenTTL = 15 * time.Minute
	config.AppConfig.OAuth.RefreshTokenTTL = 30 * 24 * time.Hour
	config.AppConfig.OAuth.CodeTTL = 5 * time.Minute
	config.AppConfig.OAuth.MaxSessions = 5

	os.Exit(m.Run())
}
