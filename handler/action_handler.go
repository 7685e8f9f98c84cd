// file: handler/action_handler.go

package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"jobagent-api/common"
	"jobagent-api/logger"
	"jobagent-api/model"
	"jobagent-api/service"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// ActionHandler serves the scoped business endpoints. Identity and scopes are
// already in the request context when these run; the handlers only consume
// them.
type ActionHandler struct {
	jobs *service.JobService
	apps *service.ApplicationService
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(jobs *service.JobService, apps *service.ApplicationService) *ActionHandler {
	return &ActionHandler{jobs: jobs, apps: apps}
}

// SearchJobs godoc
// @Summary      Search job listings
// @Tags         jobs
// @Produce      json
// @Security     BearerAuth
// @Param        q         query  string  false  "Title or company filter"
// @Param        location  query  string  false  "Location filter"
// @Param        limit     query  int     false  "Max results"
// @Success      200  {array}  model.Job
// @Router       /api/jobs [get]
func (h *ActionHandler) SearchJobs(w http.ResponseWriter, r *http.Request) *common.AppError {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	jobs, err := h.jobs.SearchJobs(q.Get("q"), q.Get("location"), limit)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not search jobs", err)
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jobs)
	return nil
}

// GetJob returns one job listing by id.
func (h *ActionHandler) GetJob(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid job id", err)
	}

	job, err := h.jobs.GetJob(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.NewAppError(http.StatusNotFound, "Job not found", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Could not get job", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(job)
	return nil
}

// ListApplications returns the authenticated user's applications.
func (h *ActionHandler) ListApplications(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	apps, err := h.apps.ListForUser(userID)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not list applications", err)
	}
	if apps == nil {
		apps = []*model.Application{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apps)
	return nil
}

// SubmitApplication creates a new application on behalf of the user.
func (h *ActionHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.SubmitApplicationRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"job_id":  req.JobID,
	})
	log.Info("Application submission received")

	app, err := h.apps.Submit(userID, req.JobID, req.Note)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return common.NewAppError(http.StatusNotFound, "Job not found", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Could not submit application", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(app)
	return nil
}
