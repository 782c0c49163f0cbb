// backend/services/dispatch-service/internal/services/helpers.go

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/sirupsen/logrus"
)

func notFoundErr(what string) error {
	return &utils.AppError{
		StatusCode: http.StatusNotFound,
		Code:       utils.ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", what),
	}
}

func internalErr(msg string, err error) error {
	return &utils.AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       utils.ErrCodeInternal,
		Message:    msg,
		Err:        err,
	}
}

func invalidStateErr(msg string, err error) error {
	if msg == "" {
		msg = constants.ErrMsgInvalidState
	}
	return &utils.AppError{
		StatusCode: http.StatusConflict,
		Code:       utils.ErrCodeInvalidState,
		Message:    msg,
		Err:        err,
	}
}

func validationErr(msg string, err error) error {
	return &utils.AppError{
		StatusCode: http.StatusBadRequest,
		Code:       utils.ErrCodeValidation,
		Message:    msg,
		Err:        err,
	}
}

func configurationErr(err error) error {
	return &utils.AppError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       utils.ErrCodeConfiguration,
		Message:    "Outbound email is not configured",
		Err:        err,
	}
}

// mapTransitionErr turns repository transition failures into AppErrors.
func mapTransitionErr(err error, what string) error {
	switch {
	case errors.Is(err, utils.ErrTransitionConflict):
		return invalidStateErr("", err)
	case errors.Is(err, utils.ErrRowVersionConflict):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeRowVersionConflict,
			Message:    "The record was modified concurrently, please retry",
			Err:        err,
		}
	case isNoRows(err):
		return notFoundErr(what)
	}
	return internalErr(fmt.Sprintf("Failed to update %s", what), err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// adminAuditor writes admin audit log entries. A failed write is logged and
// never fails the admin action itself.
type adminAuditor struct {
	repo repositories.AdminAuditLogRepository
}

func (a adminAuditor) log(
	ctx context.Context,
	adminID, targetID uuid.UUID,
	action models.AuditAction,
	targetType models.AuditTargetType,
	details any,
) {
	entry := &models.AdminAuditLog{
		ID:         uuid.New(),
		AdminID:    adminID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
	}
	if details != nil {
		if marshalled, err := json.Marshal(details); err == nil {
			raw := json.RawMessage(marshalled)
			entry.Details = &raw
		}
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"admin_id":  adminID,
			"target_id": targetID,
			"action":    action,
		}).Warn("Failed to write admin audit log")
	}
}
