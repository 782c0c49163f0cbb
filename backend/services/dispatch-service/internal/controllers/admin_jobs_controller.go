package controllers

import (
	"net/http"
	"strconv"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AdminJobsController struct {
	jobService *services.JobService
	gate       *services.AdminGate
	manager    *services.AssignmentManager
	validate   *validator.Validate
}

func NewAdminJobsController(
	jobService *services.JobService,
	gate *services.AdminGate,
	manager *services.AssignmentManager,
) *AdminJobsController {
	return &AdminJobsController{
		jobService: jobService,
		gate:       gate,
		manager:    manager,
		validate:   validator.New(),
	}
}

// adminAndJob pulls the admin id from context and the job id from the path.
func (c *AdminJobsController) adminAndJob(w http.ResponseWriter, r *http.Request, handler string) (uuid.UUID, uuid.UUID, *logrus.Entry, bool) {
	logger := utils.Logger.WithField("handler", handler)
	adminID, err := getAdminID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return uuid.Nil, uuid.Nil, logger, false
	}
	jobID, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return uuid.Nil, uuid.Nil, logger, false
	}
	return adminID, jobID, logger.WithFields(logrus.Fields{"adminID": adminID, "job_id": jobID}), true
}

// GET /api/v1/admin/jobs
func (c *AdminJobsController) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := 0, 0
	var err error
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid limit", nil, err)
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid offset", nil, err)
			return
		}
	}

	resp, err := c.jobService.ListJobs(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/admin/jobs/{id}
func (c *AdminJobsController) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	detail, err := c.manager.GetJobDetail(r.Context(), jobID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, detail)
}

// PATCH /api/v1/admin/jobs/{id}
func (c *AdminJobsController) EditJobHandler(w http.ResponseWriter, r *http.Request) {
	adminID, jobID, logger, ok := c.adminAndJob(w, r, "EditJobHandler")
	if !ok {
		return
	}
	var req dtos.UpdateJobRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	job, err := c.jobService.EditJob(r.Context(), adminID, jobID, req)
	if err != nil {
		logger.WithError(err).Warn("Edit failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, job)
}

// POST /api/v1/admin/jobs/{id}/approve
func (c *AdminJobsController) ApproveJobHandler(w http.ResponseWriter, r *http.Request) {
	adminID, jobID, logger, ok := c.adminAndJob(w, r, "ApproveJobHandler")
	if !ok {
		return
	}
	res, err := c.gate.Approve(r.Context(), adminID, jobID)
	if err != nil {
		logger.WithError(err).Warn("Approve failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, broadcastResponse(res))
}

// POST /api/v1/admin/jobs/{id}/rebroadcast
func (c *AdminJobsController) RebroadcastJobHandler(w http.ResponseWriter, r *http.Request) {
	adminID, jobID, logger, ok := c.adminAndJob(w, r, "RebroadcastJobHandler")
	if !ok {
		return
	}
	res, err := c.gate.Rebroadcast(r.Context(), adminID, jobID)
	if err != nil {
		logger.WithError(err).Warn("Rebroadcast failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, broadcastResponse(res))
}

// POST /api/v1/admin/jobs/{id}/cancel
func (c *AdminJobsController) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	adminID, jobID, logger, ok := c.adminAndJob(w, r, "CancelJobHandler")
	if !ok {
		return
	}
	res, err := c.gate.Cancel(r.Context(), adminID, jobID)
	if err != nil {
		logger.WithError(err).Warn("Cancel failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.CancelJobResponse{
		Job:                 res.Job,
		PreviousStatus:      string(res.PreviousStatus),
		ExpiredInvites:      res.ExpiredInvites,
		CancelledAssignment: res.CancelledAssignment,
	})
}

// POST /api/v1/admin/jobs/{id}/confirm
func (c *AdminJobsController) ConfirmJobHandler(w http.ResponseWriter, r *http.Request) {
	adminID, jobID, logger, ok := c.adminAndJob(w, r, "ConfirmJobHandler")
	if !ok {
		return
	}
	job, asg, err := c.manager.Confirm(r.Context(), adminID, jobID)
	if err != nil {
		logger.WithError(err).Warn("Confirm failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmJobResponse{Job: job, Assignment: asg})
}

// POST /api/v1/admin/jobs/{id}/complete
func (c *AdminJobsController) CompleteJobHandler(w http.ResponseWriter, r *http.Request) {
	adminID, jobID, logger, ok := c.adminAndJob(w, r, "CompleteJobHandler")
	if !ok {
		return
	}
	job, err := c.gate.Complete(r.Context(), adminID, jobID)
	if err != nil {
		logger.WithError(err).Warn("Complete failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, job)
}

func broadcastResponse(res *services.BroadcastResult) dtos.BroadcastResponse {
	return dtos.BroadcastResponse{
		JobID:    res.JobID.String(),
		Status:   string(models.JobStatusBroadcast),
		Eligible: res.Eligible,
		Sent:     res.Sent,
		Failed:   res.Failed,
		Skipped:  res.Skipped,
	}
}
