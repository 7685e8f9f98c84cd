// file: service/job_service.go

package service

import (
	"jobagent-api/model"
	"jobagent-api/repository"
)

const maxSearchResults = 50

// JobService handles job-listing reads for the scoped action endpoints.
type JobService struct {
	repo repository.IJobRepository
}

// NewJobService creates a new JobService.
func NewJobService(repo repository.IJobRepository) *JobService {
	return &JobService{repo: repo}
}

// SearchJobs runs a bounded search over the listings.
func (s *JobService) SearchJobs(query, location string, limit int) ([]*model.Job, error) {
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	return s.repo.Search(query, location, limit)
}

// GetJob retrieves one listing by id.
func (s *JobService) GetJob(id int) (*model.Job, error) {
	return s.repo.GetByID(id)
}
