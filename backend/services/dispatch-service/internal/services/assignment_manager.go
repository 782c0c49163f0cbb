// backend/services/dispatch-service/internal/services/assignment_manager.go

package services

import (
	"context"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/notify"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AssignmentManager owns everything that happens to an assignment after the
// bind transaction committed.
type AssignmentManager struct {
	jobs        repositories.JobRepository
	drivers     repositories.DriverRepository
	invites     repositories.InviteRepository
	assignments repositories.AssignmentRepository
	audits      repositories.AcceptanceAuditRepository
	noShows     repositories.NoShowRepository
	deliveries  repositories.DeliveryLogRepository
	notifier    notify.Notifier
	auditor     adminAuditor
}

func NewAssignmentManager(
	jobs repositories.JobRepository,
	drivers repositories.DriverRepository,
	invites repositories.InviteRepository,
	assignments repositories.AssignmentRepository,
	audits repositories.AcceptanceAuditRepository,
	noShows repositories.NoShowRepository,
	deliveries repositories.DeliveryLogRepository,
	adminLogs repositories.AdminAuditLogRepository,
	notifier notify.Notifier,
) *AssignmentManager {
	return &AssignmentManager{
		jobs:        jobs,
		drivers:     drivers,
		invites:     invites,
		assignments: assignments,
		audits:      audits,
		noShows:     noShows,
		deliveries:  deliveries,
		notifier:    notifier,
		auditor:     adminAuditor{repo: adminLogs},
	}
}

// OnAssigned sends the winner their confirmation. A failed email is logged
// and recorded; the assignment stands regardless.
func (m *AssignmentManager) OnAssigned(ctx context.Context, bound *repositories.BindResult) {
	log := utils.Logger.WithFields(logrus.Fields{
		"job_id":        bound.Job.ID,
		"assignment_id": bound.Assignment.ID,
	})

	driver, err := m.drivers.GetByID(ctx, bound.Assignment.DriverID)
	if err != nil || driver == nil {
		log.WithError(err).Error("Cannot load assigned driver for confirmation email")
		return
	}

	driverID := driver.ID
	entry := &models.DeliveryLogEntry{
		ID:         uuid.New(),
		JobID:      bound.Job.ID,
		DriverID:   &driverID,
		Recipient:  driver.Email,
		Channel:    models.DeliveryChannelEmail,
		TemplateID: constants.TemplateAssignmentConfirmation,
		Status:     models.DeliveryStatusSent,
	}
	err = m.notifier.SendAssignmentConfirmation(ctx, notify.ConfirmationMessage{
		Job:        bound.Job,
		Driver:     driver,
		Assignment: bound.Assignment,
	})
	if err != nil {
		log.WithError(err).Warn("Assignment confirmation email failed")
		entry.Status = models.DeliveryStatusFailed
		entry.Error = err.Error()
	}
	if err := m.deliveries.Append(ctx, entry); err != nil {
		log.WithError(err).Error("Failed to append delivery log")
	}
	metrics.Notifications.WithLabelValues(entry.TemplateID, string(entry.Status)).Inc()
}

// SetOverride edits the admin rate override and note.
func (m *AssignmentManager) SetOverride(
	ctx context.Context,
	adminID, assignmentID uuid.UUID,
	req dtos.UpdateAssignmentRequest,
) (*models.Assignment, error) {
	if (req.RateType == nil) != (req.RateCents == nil) {
		return nil, validationErr("rate_type and rate_cents must be set together", nil)
	}

	var before models.Assignment
	err := m.assignments.UpdateWithRetry(ctx, assignmentID, func(a *models.Assignment) error {
		if a.Status == models.AssignmentStatusCancelled {
			return invalidStateErr("Assignment is cancelled", nil)
		}
		before = *a
		if req.RateType != nil {
			a.RateType = *req.RateType
			a.RateCents = *req.RateCents
		}
		if req.AdminNote != nil {
			a.AdminNote = *req.AdminNote
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*utils.AppError); ok {
			return nil, err
		}
		return nil, mapTransitionErr(err, "assignment")
	}

	updated, err := m.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, internalErr("Failed to reload assignment", err)
	}
	m.auditor.log(ctx, adminID, assignmentID, models.AuditUpdate, models.TargetAssignment, map[string]any{
		"before": before,
		"after":  updated,
	})
	return updated, nil
}

// Confirm moves an ASSIGNED job and its assignment to CONFIRMED.
func (m *AssignmentManager) Confirm(ctx context.Context, adminID, jobID uuid.UUID) (*models.Job, *models.Assignment, error) {
	job, asg, err := m.assignments.ConfirmAtomic(ctx, jobID)
	if err != nil {
		return nil, nil, mapTransitionErr(err, "job")
	}
	m.auditor.log(ctx, adminID, jobID, models.AuditConfirm, models.TargetJob, map[string]any{
		"assignment_id": asg.ID,
	})
	return job, asg, nil
}

// GetJobDetail gathers the job and every record hanging off it.
func (m *AssignmentManager) GetJobDetail(ctx context.Context, jobID uuid.UUID) (*dtos.JobDetailResponse, error) {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, internalErr("Failed to load job", err)
	}
	if job == nil {
		return nil, notFoundErr("Job")
	}

	out := &dtos.JobDetailResponse{Job: job}
	if out.Invites, err = m.invites.ListByJob(ctx, jobID); err != nil {
		return nil, internalErr("Failed to load invites", err)
	}
	if out.Assignment, err = m.assignments.GetByJobID(ctx, jobID); err != nil {
		return nil, internalErr("Failed to load assignment", err)
	}
	if out.Audits, err = m.audits.ListByJob(ctx, jobID); err != nil {
		return nil, internalErr("Failed to load acceptance audits", err)
	}
	if out.Assignment != nil {
		if out.NoShow, err = m.noShows.GetByAssignmentID(ctx, out.Assignment.ID); err != nil {
			return nil, internalErr("Failed to load no-show record", err)
		}
	}
	if out.DeliveryLog, err = m.deliveries.ListByJob(ctx, jobID); err != nil {
		return nil, internalErr("Failed to load delivery log", err)
	}
	if out.Invites == nil {
		out.Invites = []*models.Invite{}
	}
	if out.Audits == nil {
		out.Audits = []*models.AcceptanceAudit{}
	}
	if out.DeliveryLog == nil {
		out.DeliveryLog = []*models.DeliveryLogEntry{}
	}
	return out, nil
}
