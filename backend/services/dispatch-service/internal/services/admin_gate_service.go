// backend/services/dispatch-service/internal/services/admin_gate_service.go

package services

import (
	"context"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AdminGate holds every operator-only job transition. Nothing reaches a
// driver without passing through Approve or Rebroadcast.
type AdminGate struct {
	jobs       repositories.JobRepository
	drivers    repositories.DriverRepository
	invites    repositories.InviteRepository
	dispatcher *BroadcastDispatcher
	clock      utils.Clock
	auditor    adminAuditor
}

func NewAdminGate(
	jobs repositories.JobRepository,
	drivers repositories.DriverRepository,
	invites repositories.InviteRepository,
	adminLogs repositories.AdminAuditLogRepository,
	dispatcher *BroadcastDispatcher,
	clock utils.Clock,
) *AdminGate {
	return &AdminGate{
		jobs:       jobs,
		drivers:    drivers,
		invites:    invites,
		dispatcher: dispatcher,
		clock:      clock,
		auditor:    adminAuditor{repo: adminLogs},
	}
}

// Approve moves an OPEN job to BROADCAST and runs the first sweep.
func (g *AdminGate) Approve(ctx context.Context, adminID, jobID uuid.UUID) (*BroadcastResult, error) {
	if err := g.dispatcher.CheckConfig(); err != nil {
		return nil, configurationErr(err)
	}

	job, err := g.jobs.TransitionAtomic(ctx, jobID, models.JobStatusOpen, models.JobStatusBroadcast)
	if err != nil {
		return nil, mapTransitionErr(err, "job")
	}
	g.auditor.log(ctx, adminID, jobID, models.AuditApprove, models.TargetJob, nil)
	metrics.Broadcasts.Inc()

	eligible, err := g.drivers.ListEligible(ctx)
	if err != nil {
		return nil, internalErr("Job approved but the driver list could not be loaded; use rebroadcast", err)
	}
	return g.sweep(ctx, job, eligible)
}

// Rebroadcast invites eligible drivers that have never had a usable invite
// for this job, or whose invite expired. Declines are final.
func (g *AdminGate) Rebroadcast(ctx context.Context, adminID, jobID uuid.UUID) (*BroadcastResult, error) {
	if err := g.dispatcher.CheckConfig(); err != nil {
		return nil, configurationErr(err)
	}
	job, err := g.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, internalErr("Failed to load job", err)
	}
	if job == nil {
		return nil, notFoundErr("Job")
	}
	if job.Status != models.JobStatusBroadcast {
		return nil, invalidStateErr("Only BROADCAST jobs can be rebroadcast", nil)
	}

	eligible, err := g.drivers.ListEligible(ctx)
	if err != nil {
		return nil, internalErr("Failed to load drivers", err)
	}
	existing, err := g.invites.ListByJob(ctx, jobID)
	if err != nil {
		return nil, internalErr("Failed to load invites", err)
	}
	contacted := make(map[uuid.UUID]bool, len(existing))
	for _, inv := range existing {
		if inv.Status != models.InviteStatusExpired {
			contacted[inv.DriverID] = true
		}
	}
	fresh := make([]*models.Driver, 0, len(eligible))
	for _, d := range eligible {
		if !contacted[d.ID] {
			fresh = append(fresh, d)
		}
	}

	g.auditor.log(ctx, adminID, jobID, models.AuditRebroadcast, models.TargetJob, map[string]any{
		"new_recipients": len(fresh),
	})
	return g.sweep(ctx, job, fresh)
}

func (g *AdminGate) sweep(ctx context.Context, job *models.Job, drivers []*models.Driver) (*BroadcastResult, error) {
	// The job is already BROADCAST; a client disconnect must not leave the
	// sweep half done.
	res, err := g.dispatcher.Broadcast(context.WithoutCancel(ctx), job, drivers)
	if err != nil {
		return nil, internalErr("Broadcast failed", err)
	}
	return res, nil
}

// Cancel retires the job together with its pending invites and assignment.
func (g *AdminGate) Cancel(ctx context.Context, adminID, jobID uuid.UUID) (*repositories.CancelResult, error) {
	res, err := g.jobs.CancelAtomic(ctx, jobID, g.clock.Now())
	if err != nil {
		return nil, mapTransitionErr(err, "job")
	}
	utils.Logger.WithFields(logrus.Fields{
		"job_id":               jobID,
		"previous_status":      res.PreviousStatus,
		"expired_invites":      res.ExpiredInvites,
		"cancelled_assignment": res.CancelledAssignment,
	}).Info("Job cancelled")
	g.auditor.log(ctx, adminID, jobID, models.AuditCancel, models.TargetJob, map[string]any{
		"previous_status":      res.PreviousStatus,
		"expired_invites":      res.ExpiredInvites,
		"cancelled_assignment": res.CancelledAssignment,
	})
	return res, nil
}

func (g *AdminGate) Complete(ctx context.Context, adminID, jobID uuid.UUID) (*models.Job, error) {
	job, err := g.jobs.TransitionAtomic(ctx, jobID, models.JobStatusConfirmed, models.JobStatusCompleted)
	if err != nil {
		return nil, mapTransitionErr(err, "job")
	}
	g.auditor.log(ctx, adminID, jobID, models.AuditComplete, models.TargetJob, nil)
	return job, nil
}
