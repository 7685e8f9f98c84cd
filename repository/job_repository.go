package repository

import (
	"database/sql"
	"jobagent-api/logger"
	"jobagent-api/model"

	"github.com/sirupsen/logrus"
)

// IJobRepository defines the contract for job listing reads.
type IJobRepository interface {
	Search(query, location string, limit int) ([]*model.Job, error)
	GetByID(id int) (*model.Job, error)
}

// JobRepository implements IJobRepository.
type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// Search retrieves jobs matching the optional title/company query and
// location filters, newest first.
func (r *JobRepository) Search(query, location string, limit int) ([]*model.Job, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"query":    query,
		"location": location,
	})
	log.Info("Executing query to search jobs")

	sqlQuery := `SELECT id, title, company, location, description, posted_at FROM jobs
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR company ILIKE '%' || $1 || '%')
		AND ($2 = '' OR location ILIKE '%' || $2 || '%')
		ORDER BY posted_at DESC LIMIT $3`
	rows, err := r.DB.Query(sqlQuery, query, location, limit)
	if err != nil {
		log.WithError(err).Error("Failed to execute search jobs query")
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.PostedAt); err != nil {
			log.WithError(err).Error("Failed to scan job row")
			return nil, err
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// GetByID retrieves a single job listing.
func (r *JobRepository) GetByID(id int) (*model.Job, error) {
	log := logger.Log.WithField("job_id", id)
	log.Info("Executing query to get job by id")

	job := &model.Job{}
	query := `SELECT id, title, company, location, description, posted_at FROM jobs WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(&job.ID, &job.Title, &job.Company, &job.Location, &job.Description, &job.PostedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get job by id query")
		}
		return nil, err
	}
	return job, nil
}
