package controllers

import (
	"net/http"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/go-playground/validator/v10"
)

// JobsController serves public job intake.
type JobsController struct {
	jobService *services.JobService
	validate   *validator.Validate
}

func NewJobsController(s *services.JobService) *JobsController {
	return &JobsController{jobService: s, validate: validator.New()}
}

// POST /api/v1/jobs
func (c *JobsController) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "CreateJobHandler")

	var req dtos.CreateJobRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	job, err := c.jobService.CreateJob(r.Context(), req)
	if err != nil {
		logger.WithError(err).Error("Service call failed")
		utils.HandleAppError(w, err)
		return
	}
	logger.WithField("job_id", job.ID).Info("Job received")
	utils.RespondWithJSON(w, http.StatusCreated, job)
}
