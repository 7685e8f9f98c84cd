// file: repository/audit_repository.go

package repository

import (
	"database/sql"
	"encoding/json"
	"jobagent-api/logger"
	"jobagent-api/model"

	"github.com/sirupsen/logrus"
)

// IAuditRepository defines the contract for the append-only audit log.
type IAuditRepository interface {
	Insert(event *model.AuditEvent) error
}

// AuditRepository implements IAuditRepository.
type AuditRepository struct {
	DB *sql.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

// Insert appends one audit event row. Rows are never updated or deleted.
func (r *AuditRepository) Insert(event *model.AuditEvent) error {
	log := logger.Log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"user_id":    event.UserID,
	})
	log.Info("Executing query to insert audit event")

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			log.WithError(err).Error("Failed to marshal audit event metadata")
			return err
		}
	}

	query := `INSERT INTO audit_events (id, event_type, user_id, session_id, metadata, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.Exec(query, event.ID, event.Type, event.UserID, nullString(event.SessionID), metadata, event.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute insert audit event query")
		return err
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
