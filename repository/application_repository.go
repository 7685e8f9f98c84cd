package repository

import (
	"database/sql"
	"jobagent-api/logger"
	"jobagent-api/model"

	"github.com/sirupsen/logrus"
)

// IApplicationRepository defines the contract for job application persistence.
type IApplicationRepository interface {
	Create(app *model.Application) error
	ListByUserID(userID string) ([]*model.Application, error)
}

// ApplicationRepository implements IApplicationRepository.
type ApplicationRepository struct {
	DB *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{DB: db}
}

// Create inserts a new application row.
func (r *ApplicationRepository) Create(app *model.Application) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": app.UserID,
		"job_id":  app.JobID,
	})
	log.Info("Executing query to create application")

	query := `INSERT INTO applications (user_id, job_id, status, note) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	err := r.DB.QueryRow(query, app.UserID, app.JobID, app.Status, app.Note).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create application query")
		return err
	}
	return nil
}

// ListByUserID retrieves all applications submitted by a user.
func (r *ApplicationRepository) ListByUserID(userID string) ([]*model.Application, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to list applications for a user")

	query := `SELECT id, user_id, job_id, status, note, created_at, updated_at FROM applications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute list applications query")
		return nil, err
	}
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		var a model.Application
		if err := rows.Scan(&a.ID, &a.UserID, &a.JobID, &a.Status, &a.Note, &a.CreatedAt, &a.UpdatedAt); err != nil {
			log.WithError(err).Error("Failed to scan application row")
			return nil, err
		}
		apps = append(apps, &a)
	}
	return apps, rows.Err()
}
