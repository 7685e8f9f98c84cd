// file: service/application_service.go

package service

import (
	"database/sql"
	"errors"
	"jobagent-api/model"
	"jobagent-api/repository"
)

// ErrJobNotFound is returned when an application targets a missing listing.
var ErrJobNotFound = errors.New("job not found")

// ApplicationService handles application submission and listing on behalf of
// the authenticated user.
type ApplicationService struct {
	apps repository.IApplicationRepository
	jobs repository.IJobRepository
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(apps repository.IApplicationRepository, jobs repository.IJobRepository) *ApplicationService {
	return &ApplicationService{apps: apps, jobs: jobs}
}

// Submit creates a new application after confirming the job exists.
func (s *ApplicationService) Submit(userID string, jobID int, note string) (*model.Application, error) {
	if _, err := s.jobs.GetByID(jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	app := &model.Application{
		UserID: userID,
		JobID:  jobID,
		Status: "submitted",
		Note:   note,
	}
	if err := s.apps.Create(app); err != nil {
		return nil, err
	}
	return app, nil
}

// ListForUser returns the user's applications, newest first.
func (s *ApplicationService) ListForUser(userID string) ([]*model.Application, error) {
	return s.apps.ListByUserID(userID)
}
