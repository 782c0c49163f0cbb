// backend/services/dispatch-service/internal/services/driver_service.go

package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	internal_utils "github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/utils"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DriverService is the driver directory. Only APPROVED and ACTIVE drivers
// are ever invited.
type DriverService struct {
	drivers repositories.DriverRepository
	auditor adminAuditor
}

func NewDriverService(drivers repositories.DriverRepository, adminLogs repositories.AdminAuditLogRepository) *DriverService {
	return &DriverService{drivers: drivers, auditor: adminAuditor{repo: adminLogs}}
}

func (s *DriverService) CreateDriver(ctx context.Context, adminID uuid.UUID, req dtos.CreateDriverRequest) (*models.Driver, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.drivers.GetByEmail(ctx, email)
	if err != nil {
		return nil, internalErr("Failed to check driver email", err)
	}
	if existing != nil {
		return nil, &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       internal_utils.ErrCodeEmailExists,
			Message:    "A driver with this email already exists",
			Err:        utils.ErrEmailExists,
		}
	}

	d := &models.Driver{
		ID:          uuid.New(),
		Status:      models.DriverStatusPending,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		PhoneNumber: req.PhoneNumber,
		VehicleType: strings.TrimSpace(req.VehicleType),
	}
	if err := s.drivers.Create(ctx, d); err != nil {
		return nil, internalErr("Failed to create driver", err)
	}
	s.auditor.log(ctx, adminID, d.ID, models.AuditCreate, models.TargetDriver, nil)
	return d, nil
}

// SetStatus approves, activates or blocks a driver. Blocking takes effect for
// every send that has not happened yet.
func (s *DriverService) SetStatus(ctx context.Context, adminID, driverID uuid.UUID, status models.DriverStatusType) (*models.Driver, error) {
	if !status.IsValid() {
		return nil, validationErr("Unknown driver status", nil)
	}
	var previous models.DriverStatusType
	err := s.drivers.UpdateWithRetry(ctx, driverID, func(d *models.Driver) error {
		previous = d.Status
		d.Status = status
		return nil
	})
	if err != nil {
		return nil, mapTransitionErr(err, "driver")
	}
	d, err := s.drivers.GetByID(ctx, driverID)
	if err != nil || d == nil {
		return nil, internalErr("Failed to reload driver", err)
	}
	utils.Logger.WithFields(logrus.Fields{
		"driver_id": driverID,
		"from":      previous,
		"to":        status,
	}).Info("Driver status changed")
	s.auditor.log(ctx, adminID, driverID, models.AuditUpdate, models.TargetDriver, map[string]any{
		"from": previous,
		"to":   status,
	})
	return d, nil
}
