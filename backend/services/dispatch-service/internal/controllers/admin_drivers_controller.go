package controllers

import (
	"net/http"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/go-playground/validator/v10"
)

type AdminDriversController struct {
	driverService *services.DriverService
	validate      *validator.Validate
}

func NewAdminDriversController(s *services.DriverService) *AdminDriversController {
	return &AdminDriversController{driverService: s, validate: validator.New()}
}

// POST /api/v1/admin/drivers
func (c *AdminDriversController) CreateDriverHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "CreateDriverHandler")
	adminID, err := getAdminID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	var req dtos.CreateDriverRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	drv, err := c.driverService.CreateDriver(r.Context(), adminID, req)
	if err != nil {
		logger.WithError(err).Warn("Create driver failed")
		utils.HandleAppError(w, err)
		return
	}
	logger.WithField("driver_id", drv.ID).Info("Driver registered")
	utils.RespondWithJSON(w, http.StatusCreated, drv)
}

// PATCH /api/v1/admin/drivers/{id}/status
func (c *AdminDriversController) SetDriverStatusHandler(w http.ResponseWriter, r *http.Request) {
	adminID, err := getAdminID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	driverID, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	var req dtos.SetDriverStatusRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	drv, err := c.driverService.SetStatus(r.Context(), adminID, driverID, req.Status)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, drv)
}
