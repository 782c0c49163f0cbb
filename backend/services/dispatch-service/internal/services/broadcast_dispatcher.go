// backend/services/dispatch-service/internal/services/broadcast_dispatcher.go

package services

import (
	"context"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/notify"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/ratelimit"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BroadcastResult counts one sweep. Eligible is the driver set at the time
// the sweep started; every one of them ends up in exactly one of the other
// three buckets.
type BroadcastResult struct {
	JobID    uuid.UUID
	Eligible int
	Sent     int
	Failed   int
	Skipped  int
}

type BroadcastDispatcher struct {
	drivers    repositories.DriverRepository
	invites    repositories.InviteRepository
	deliveries repositories.DeliveryLogRepository
	issuer     *InviteIssuer
	notifier   notify.Notifier
	alerter    notify.OperatorAlerter
	pacer      ratelimit.Pacer
}

func NewBroadcastDispatcher(
	drivers repositories.DriverRepository,
	invites repositories.InviteRepository,
	deliveries repositories.DeliveryLogRepository,
	issuer *InviteIssuer,
	notifier notify.Notifier,
	alerter notify.OperatorAlerter,
	pacer ratelimit.Pacer,
) *BroadcastDispatcher {
	return &BroadcastDispatcher{
		drivers:    drivers,
		invites:    invites,
		deliveries: deliveries,
		issuer:     issuer,
		notifier:   notifier,
		alerter:    alerter,
		pacer:      pacer,
	}
}

// CheckConfig must pass before a job is moved to BROADCAST.
func (d *BroadcastDispatcher) CheckConfig() error {
	return d.notifier.CheckConfig()
}

// Broadcast issues invites for a BROADCAST job and emails them one at a
// time through the pacer. One recipient's failure never stops the sweep.
func (d *BroadcastDispatcher) Broadcast(ctx context.Context, job *models.Job, eligible []*models.Driver) (*BroadcastResult, error) {
	res := &BroadcastResult{JobID: job.ID, Eligible: len(eligible)}
	log := utils.Logger.WithField("job_id", job.ID)

	if len(eligible) == 0 {
		d.alertNoEligible(ctx, job)
		return res, nil
	}

	issued, err := d.issuer.Issue(ctx, job.ID, eligible)
	if err != nil {
		return res, err
	}
	for _, drv := range issued.Failed {
		res.Failed++
		d.record(ctx, job.ID, drv, models.DeliveryStatusFailed, "invite could not be stored")
	}
	for _, drv := range issued.NotIssued {
		res.Skipped++
		d.record(ctx, job.ID, drv, models.DeliveryStatusSkipped, "live invite exists or job no longer broadcast")
	}

	for idx, iss := range issued.Issued {
		if err := d.pacer.Wait(ctx); err != nil {
			// Remaining invites stay PENDING and can be re-sent by a rebroadcast
			// once they expire.
			for _, pending := range issued.Issued[idx:] {
				res.Failed++
				d.record(ctx, job.ID, pending.Driver, models.DeliveryStatusFailed, "sweep aborted: "+err.Error())
			}
			log.WithError(err).Warn("Broadcast sweep aborted")
			break
		}
		d.sendOne(ctx, job, iss, res)
	}

	log.WithFields(logrus.Fields{
		"eligible": res.Eligible,
		"sent":     res.Sent,
		"failed":   res.Failed,
		"skipped":  res.Skipped,
	}).Info("Broadcast sweep finished")
	return res, nil
}

func (d *BroadcastDispatcher) sendOne(ctx context.Context, job *models.Job, iss IssuedInvite, res *BroadcastResult) {
	log := utils.Logger.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"driver_id": iss.Driver.ID,
		"invite_id": iss.Invite.ID,
	})

	// The driver may have been blocked since the eligible set was read.
	current, err := d.drivers.GetByID(ctx, iss.Driver.ID)
	if err != nil {
		res.Failed++
		log.WithError(err).Error("Failed to re-check driver before send")
		d.record(ctx, job.ID, iss.Driver, models.DeliveryStatusFailed, "driver lookup failed")
		return
	}
	if !current.IsEligible() {
		if _, err := d.invites.ExpireByID(ctx, iss.Invite.ID); err != nil {
			log.WithError(err).Error("Failed to expire invite of ineligible driver")
		}
		res.Skipped++
		log.Info("Driver no longer eligible; invite withdrawn")
		d.record(ctx, job.ID, iss.Driver, models.DeliveryStatusSkipped, "driver no longer eligible")
		return
	}

	msg := notify.InviteMessage{
		Job:        job,
		Driver:     current,
		AcceptURL:  d.issuer.RespondURL("accept", iss.Token),
		DeclineURL: d.issuer.RespondURL("decline", iss.Token),
		ExpiresAt:  iss.Invite.ExpiresAt,
	}
	if err := d.notifier.SendInvite(ctx, msg); err != nil {
		res.Failed++
		log.WithError(err).Warn("Invite email failed")
		d.record(ctx, job.ID, current, models.DeliveryStatusFailed, err.Error())
		return
	}
	res.Sent++
	log.Debug("Invite email sent")
	d.record(ctx, job.ID, current, models.DeliveryStatusSent, "")
}

func (d *BroadcastDispatcher) alertNoEligible(ctx context.Context, job *models.Job) {
	log := utils.Logger.WithField("job_id", job.ID)
	log.Warn("Job approved with zero eligible drivers; nothing sent")

	recipient, err := d.alerter.AlertNoEligibleDrivers(ctx, job)
	entry := &models.DeliveryLogEntry{
		ID:         uuid.New(),
		JobID:      job.ID,
		Recipient:  recipient,
		Channel:    models.DeliveryChannelSMS,
		TemplateID: constants.TemplateOperatorNoEligible,
		Status:     models.DeliveryStatusSent,
	}
	switch {
	case err != nil:
		log.WithError(err).Error("Operator alert failed")
		entry.Status = models.DeliveryStatusFailed
		entry.Error = err.Error()
	case recipient == "":
		entry.Status = models.DeliveryStatusSkipped
		entry.Error = "operator alerts disabled"
	}
	d.append(ctx, entry)
	metrics.Notifications.WithLabelValues(entry.TemplateID, string(entry.Status)).Inc()
}

func (d *BroadcastDispatcher) record(ctx context.Context, jobID uuid.UUID, drv *models.Driver, status models.DeliveryStatusType, reason string) {
	driverID := drv.ID
	d.append(ctx, &models.DeliveryLogEntry{
		ID:         uuid.New(),
		JobID:      jobID,
		DriverID:   &driverID,
		Recipient:  drv.Email,
		Channel:    models.DeliveryChannelEmail,
		TemplateID: constants.TemplateJobInvite,
		Status:     status,
		Error:      reason,
	})
	metrics.Notifications.WithLabelValues(constants.TemplateJobInvite, string(status)).Inc()
}

func (d *BroadcastDispatcher) append(ctx context.Context, e *models.DeliveryLogEntry) {
	// The sweep may have been cancelled; the log entry still has to land.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if err := d.deliveries.Append(ctx, e); err != nil {
		utils.Logger.WithError(err).WithField("job_id", e.JobID).Error("Failed to append delivery log")
	}
}
