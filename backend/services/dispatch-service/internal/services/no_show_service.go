// backend/services/dispatch-service/internal/services/no_show_service.go

package services

import (
	"context"
	"time"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ClassifyNotice buckets the notice a driver gave before the scheduled start.
// A report made after the start counts as the shortest notice.
func ClassifyNotice(scheduledStart, reportedAt time.Time) models.NoShowTierType {
	notice := scheduledStart.Sub(reportedAt)
	switch {
	case notice < constants.NoShowBoundaryShort:
		return models.NoShowTierUnder6h
	case notice < constants.NoShowBoundaryMid:
		return models.NoShowTier6To24h
	case notice < constants.NoShowBoundaryLong:
		return models.NoShowTier24To48h
	default:
		return models.NoShowTierAtLeast48
	}
}

// FeeFor returns the fee in cents for a tier. For OVERRIDE the operator's
// amount is used; every result is capped.
func FeeFor(tier models.NoShowTierType, overrideCents int64) int64 {
	var fee int64
	switch tier {
	case models.NoShowTierUnder6h:
		fee = constants.NoShowFeeUnder6hCents
	case models.NoShowTier6To24h:
		fee = constants.NoShowFee6To24hCents
	case models.NoShowTier24To48h:
		fee = constants.NoShowFee24To48hCents
	case models.NoShowTierAtLeast48:
		fee = constants.NoShowFeeAtLeast48Cents
	case models.NoShowTierOverride:
		fee = overrideCents
	}
	if fee < 0 {
		fee = 0
	}
	return min(fee, constants.MaxNoShowFeeCents)
}

type NoShowService struct {
	jobs        repositories.JobRepository
	assignments repositories.AssignmentRepository
	noShows     repositories.NoShowRepository
	clock       utils.Clock
	auditor     adminAuditor
}

func NewNoShowService(
	jobs repositories.JobRepository,
	assignments repositories.AssignmentRepository,
	noShows repositories.NoShowRepository,
	adminLogs repositories.AdminAuditLogRepository,
	clock utils.Clock,
) *NoShowService {
	return &NoShowService{
		jobs:        jobs,
		assignments: assignments,
		noShows:     noShows,
		clock:       clock,
		auditor:     adminAuditor{repo: adminLogs},
	}
}

// Report records, or re-records, the single no-show for an assignment. It
// never changes job or assignment status.
func (s *NoShowService) Report(
	ctx context.Context,
	adminID, assignmentID uuid.UUID,
	reportedAt *time.Time,
	overrideFeeCents *int64,
) (*models.NoShowRecord, error) {
	asg, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, internalErr("Failed to load assignment", err)
	}
	if asg == nil {
		return nil, notFoundErr("Assignment")
	}
	if asg.Status == models.AssignmentStatusCancelled {
		return nil, invalidStateErr("Assignment is cancelled", nil)
	}
	job, err := s.jobs.GetByID(ctx, asg.JobID)
	if err != nil || job == nil {
		return nil, internalErr("Failed to load job for assignment", err)
	}

	at := s.clock.Now()
	if reportedAt != nil {
		at = reportedAt.UTC()
	}

	tier := ClassifyNotice(job.ScheduledStart(), at)
	var override int64
	if overrideFeeCents != nil {
		if *overrideFeeCents < 0 {
			return nil, validationErr("override_fee_cents must not be negative", nil)
		}
		tier = models.NoShowTierOverride
		override = *overrideFeeCents
	}

	rec, err := s.noShows.Upsert(ctx, &models.NoShowRecord{
		ID:             uuid.New(),
		AssignmentID:   assignmentID,
		Tier:           tier,
		FeeCents:       FeeFor(tier, override),
		ScheduledStart: job.ScheduledStart(),
		ReportedAt:     at,
		ReportedBy:     adminID,
	})
	if err != nil {
		return nil, internalErr("Failed to record no-show", err)
	}

	metrics.NoShowReports.WithLabelValues(string(rec.Tier)).Inc()
	utils.Logger.WithFields(logrus.Fields{
		"assignment_id": assignmentID,
		"job_id":        job.ID,
		"tier":          rec.Tier.Label(),
		"fee_cents":     rec.FeeCents,
	}).Info("No-show recorded")
	s.auditor.log(ctx, adminID, assignmentID, models.AuditNoShow, models.TargetAssignment, rec)
	return rec, nil
}
