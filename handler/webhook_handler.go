// file: handler/webhook_handler.go

package handler

import (
	"jobagent-api/common"
	"jobagent-api/logger"
	"jobagent-api/model"
	"jobagent-api/service"
	"net/http"

	"github.com/sirupsen/logrus"
)

// WebhookHandler receives upstream identity-provider notifications.
type WebhookHandler struct {
	service *service.OAuthService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc *service.OAuthService) *WebhookHandler {
	return &WebhookHandler{service: svc}
}

// UserDeleted tears down every session for a deleted user. Events other than
// deletions are acknowledged without action so the provider does not retry.
func (h *WebhookHandler) UserDeleted(w http.ResponseWriter, r *http.Request) error {
	var payload model.UserDeletedWebhook
	if !common.ValidateAndDecode(w, r, &payload) {
		return nil
	}

	log := logger.Log.WithFields(logrus.Fields{
		"event":   payload.Event,
		"user_id": payload.UserID,
	})
	log.Info("Identity provider webhook received")

	if payload.Event != "user.deleted" {
		writeData(w, http.StatusOK, map[string]bool{"processed": false})
		return nil
	}

	if err := h.service.RevokeAllSessions(payload.UserID); err != nil {
		return err
	}

	writeData(w, http.StatusOK, map[string]bool{"processed": true})
	return nil
}
