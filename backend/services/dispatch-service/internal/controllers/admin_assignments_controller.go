package controllers

import (
	"net/http"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/go-playground/validator/v10"
)

type AdminAssignmentsController struct {
	manager  *services.AssignmentManager
	noShows  *services.NoShowService
	validate *validator.Validate
}

func NewAdminAssignmentsController(m *services.AssignmentManager, n *services.NoShowService) *AdminAssignmentsController {
	return &AdminAssignmentsController{manager: m, noShows: n, validate: validator.New()}
}

// PATCH /api/v1/admin/assignments/{id}
func (c *AdminAssignmentsController) UpdateAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "UpdateAssignmentHandler")
	adminID, err := getAdminID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	assignmentID, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	var req dtos.UpdateAssignmentRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	asg, err := c.manager.SetOverride(r.Context(), adminID, assignmentID, req)
	if err != nil {
		logger.WithError(err).Warn("Override failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, asg)
}

// POST /api/v1/admin/assignments/{id}/no-show
func (c *AdminAssignmentsController) ReportNoShowHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "ReportNoShowHandler")
	adminID, err := getAdminID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	assignmentID, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	var req dtos.ReportNoShowRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	rec, err := c.noShows.Report(r.Context(), adminID, assignmentID, req.ReportedAt, req.OverrideFeeCents)
	if err != nil {
		logger.WithError(err).Warn("No-show report failed")
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NoShowResponse{
		AssignmentID: rec.AssignmentID.String(),
		Tier:         string(rec.Tier),
		TierLabel:    rec.Tier.Label(),
		FeeCents:     rec.FeeCents,
	})
}
