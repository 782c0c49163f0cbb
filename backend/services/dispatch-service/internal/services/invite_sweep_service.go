// backend/services/dispatch-service/internal/services/invite_sweep_service.go

package services

import (
	"context"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
)

// InviteSweepService flips stale PENDING invites to EXPIRED and reports
// BROADCAST jobs that have nobody left to accept them. Expiry is already
// enforced at accept time; the sweep only keeps statuses honest.
type InviteSweepService struct {
	invites repositories.InviteRepository
	clock   utils.Clock
}

func NewInviteSweepService(invites repositories.InviteRepository, clock utils.Clock) *InviteSweepService {
	return &InviteSweepService{invites: invites, clock: clock}
}

// Run is invoked from cron.
func (s *InviteSweepService) Run(ctx context.Context) (expired int64, exhausted int, err error) {
	expired, err = s.invites.ExpireStale(ctx, s.clock.Now())
	if err != nil {
		utils.Logger.WithError(err).Error("Invite sweep failed")
		return 0, 0, err
	}
	metrics.InvitesExpiredBySweep.Add(float64(expired))

	jobs, err := s.invites.ListExhaustedBroadcastJobs(ctx)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to list exhausted broadcasts")
		return expired, 0, err
	}
	metrics.ExhaustedBroadcasts.Set(float64(len(jobs)))
	for _, id := range jobs {
		utils.Logger.WithField("job_id", id).Warn("Broadcast exhausted: no pending invites left; rebroadcast or cancel")
	}
	if expired > 0 {
		utils.Logger.WithField("expired", expired).Info("Invite sweep expired stale invites")
	}
	return expired, len(jobs), nil
}
