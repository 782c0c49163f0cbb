package services

import (
	"sync"
	"testing"
	"time"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJob_StaysOpenUntilApproved(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDrivers(3, models.DriverStatusApproved)

	start, end := e.TestWindow(72 * time.Hour)
	job, err := e.jobSvc.CreateJob(e.Ctx, dtos.CreateJobRequest{
		CustomerName: "Acme", CustomerEmail: "Ops@Acme.example", CustomerPhone: "+4940123456",
		Street: "1 Harbour Road", City: "Hamburg", PostalCode: "20457", Country: "de",
		VehicleType: "VAN", WindowStart: start, WindowEnd: end,
		BillingModel: models.BillingModelHourly, DefaultRateType: models.RateTypeHourly, DefaultRateCents: 3500,
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, job.Status)
	assert.Equal(t, "ops@acme.example", job.CustomerEmail)
	assert.Equal(t, "DE", job.Country)

	assert.Empty(t, e.invitesByDriver(job.ID), "creating a job must not issue invites")
	assert.Empty(t, e.notifier.invites)
}

func TestCreateJob_RejectsPastWindow(t *testing.T) {
	e := newTestEnv(t)
	now := e.Clock.Now()
	_, err := e.jobSvc.CreateJob(e.Ctx, dtos.CreateJobRequest{
		WindowStart: now.Add(-time.Minute), WindowEnd: now.Add(time.Hour),
		BillingModel: models.BillingModelHourly, DefaultRateType: models.RateTypeHourly,
	})
	requireAppErrorCode(t, err, utils.ErrCodeValidation)
}

func TestApprove_BroadcastsToEligibleDriversOnly(t *testing.T) {
	e := newTestEnv(t)
	approved := e.CreateTestDrivers(2, models.DriverStatusApproved)
	active := e.CreateTestDriver(models.DriverStatusActive)
	blocked := e.CreateTestDriver(models.DriverStatusBlocked)
	pending := e.CreateTestDriver(models.DriverStatusPending)

	job := e.CreateTestJob(models.BillingModelHourly)
	res, err := e.gate.Approve(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Eligible)
	assert.Equal(t, 3, res.Sent)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, models.JobStatusBroadcast, e.job(job.ID).Status)

	invs := e.invitesByDriver(job.ID)
	require.Len(t, invs, 3)
	for _, d := range append(approved, active) {
		inv := invs[d.ID]
		require.NotNil(t, inv)
		assert.Equal(t, models.InviteStatusPending, inv.Status)
		assert.Equal(t, models.InviteTTL, inv.ExpiresAt.Sub(inv.IssuedAt))
	}
	assert.Nil(t, invs[blocked.ID])
	assert.Nil(t, invs[pending.ID])

	tokens := e.notifier.tokens(t)
	for driverID, tok := range tokens {
		assert.Len(t, tok, 43)
		assert.Equal(t, utils.HashToken(tok), invs[driverID].TokenHash, "only the hash is stored")
	}

	log, err := e.DeliveryLog.ListByJob(e.Ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, log, 3)

	audit, err := e.AdminLogs.ListByTarget(e.Ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, models.AuditApprove, audit[0].Action)
}

func TestApprove_OnlyFromOpen(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDriver(models.DriverStatusApproved)
	job, _ := e.approvedJob(models.BillingModelHourly)

	_, err := e.gate.Approve(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)
	assert.Len(t, e.notifier.invites, 1, "second approval must not resend")
}

func TestApprove_UnknownJob(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.gate.Approve(e.Ctx, e.adminID, e.NewTestJob(models.BillingModelHourly).ID)
	requireAppErrorCode(t, err, utils.ErrCodeNotFound)
}

func TestApprove_ConfigurationErrorHasNoSideEffects(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDrivers(2, models.DriverStatusApproved)
	e.notifier.configErr = utils.ErrConfiguration

	job := e.CreateTestJob(models.BillingModelHourly)
	_, err := e.gate.Approve(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeConfiguration)
	assert.ErrorIs(t, err, utils.ErrConfiguration)

	assert.Equal(t, models.JobStatusOpen, e.job(job.ID).Status)
	assert.Empty(t, e.invitesByDriver(job.ID))
	assert.Empty(t, e.notifier.invites)
}

func TestApprove_ZeroEligibleAlertsOperator(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDriver(models.DriverStatusBlocked)

	job := e.CreateTestJob(models.BillingModelHourly)
	res, err := e.gate.Approve(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)

	assert.Equal(t, BroadcastResult{JobID: job.ID}, *res)
	assert.Equal(t, models.JobStatusBroadcast, e.job(job.ID).Status)
	assert.Equal(t, []uuid.UUID{job.ID}, e.alerter.alerts)

	log, err := e.DeliveryLog.ListByJob(e.Ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, models.DeliveryChannelSMS, log[0].Channel)
	assert.Equal(t, models.DeliveryStatusSent, log[0].Status)
}

func TestCancel_CascadesToInvitesAndBlocksAccepts(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDrivers(5, models.DriverStatusApproved)
	job, tokens := e.approvedJob(models.BillingModelHourly)
	require.Len(t, tokens, 5)

	res, err := e.gate.Cancel(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusBroadcast, res.PreviousStatus)
	assert.EqualValues(t, 5, res.ExpiredInvites)
	assert.False(t, res.CancelledAssignment)
	assert.Equal(t, models.JobStatusCancelled, e.job(job.ID).Status)

	for _, inv := range e.invitesByDriver(job.ID) {
		assert.Equal(t, models.InviteStatusExpired, inv.Status)
	}
	for _, tok := range tokens {
		assert.Equal(t, OutcomeNoLongerAvailable, e.accept(tok, false).Outcome)
	}
	asg, err := e.Assignments.GetByJobID(e.Ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, asg)

	_, err = e.gate.Cancel(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)
}

func TestCancel_RacesConcurrentAccepts(t *testing.T) {
	for round := 0; round < 25; round++ {
		e := newTestEnv(t)
		e.CreateTestDrivers(10, models.DriverStatusApproved)
		job, tokens := e.approvedJob(models.BillingModelHourly)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			outcomes  = map[Outcome]int{}
			cancelErr error
			start     = make(chan struct{})
		)
		for _, tok := range tokens {
			tok := tok
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				res, err := e.resolver.Respond(e.Ctx, RespondInput{Token: tok, Action: ActionAccept})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				outcomes[res.Outcome]++
				mu.Unlock()
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, cancelErr = e.gate.Cancel(e.Ctx, e.adminID, job.ID)
		}()
		close(start)
		wg.Wait()

		require.NoError(t, cancelErr)
		assert.LessOrEqual(t, outcomes[OutcomeBound], 1)
		assert.Equal(t, models.JobStatusCancelled, e.job(job.ID).Status)
		for _, inv := range e.invitesByDriver(job.ID) {
			assert.NotEqual(t, models.InviteStatusPending, inv.Status)
		}
		a, err := e.Assignments.GetByJobID(e.Ctx, job.ID)
		require.NoError(t, err)
		if a != nil {
			assert.Equal(t, models.AssignmentStatusCancelled, a.Status)
		}
	}
}

func TestCancel_AssignedJobCancelsAssignment(t *testing.T) {
	e := newTestEnv(t)
	drivers := e.CreateTestDrivers(2, models.DriverStatusApproved)
	job, tokens := e.approvedJob(models.BillingModelHourly)
	require.Equal(t, OutcomeBound, e.accept(tokens[drivers[0].ID], false).Outcome)

	res, err := e.gate.Cancel(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAssigned, res.PreviousStatus)
	assert.True(t, res.CancelledAssignment)

	asg, err := e.Assignments.GetByJobID(e.Ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusCancelled, asg.Status)
}

func TestConfirmAndComplete(t *testing.T) {
	e := newTestEnv(t)
	drivers := e.CreateTestDrivers(1, models.DriverStatusApproved)
	job, tokens := e.approvedJob(models.BillingModelHourly)

	_, err := e.gate.Complete(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)

	require.Equal(t, OutcomeBound, e.accept(tokens[drivers[0].ID], false).Outcome)

	confirmed, asg, err := e.manager.Confirm(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusConfirmed, confirmed.Status)
	assert.Equal(t, models.AssignmentStatusConfirmed, asg.Status)

	_, _, err = e.manager.Confirm(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)

	completed, err := e.gate.Complete(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, completed.Status)

	_, err = e.gate.Cancel(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)
}

func TestRebroadcast_OnlyNewOrExpiredRecipients(t *testing.T) {
	e := newTestEnv(t)
	first := e.CreateTestDrivers(2, models.DriverStatusApproved)
	job, tokens := e.approvedJob(models.BillingModelHourly)
	require.Equal(t, OutcomeDeclined, e.decline(tokens[first[0].ID]).Outcome)

	newcomers := e.CreateTestDrivers(2, models.DriverStatusActive)
	e.notifier.invites = nil

	res, err := e.gate.Rebroadcast(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Eligible)
	assert.Equal(t, 2, res.Sent)

	sent := e.notifier.tokens(t)
	assert.Contains(t, sent, newcomers[0].ID)
	assert.Contains(t, sent, newcomers[1].ID)
	assert.NotContains(t, sent, first[0].ID, "a decline is final")
	assert.NotContains(t, sent, first[1].ID, "still holds a live invite")

	// Once the original invites time out, their drivers can be asked again.
	e.Clock.Advance(models.InviteTTL + time.Second)
	_, _, err = e.sweep.Run(e.Ctx)
	require.NoError(t, err)
	e.notifier.invites = nil
	res, err = e.gate.Rebroadcast(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.NotContains(t, e.notifier.tokens(t), first[0].ID)
}

func TestRebroadcast_RequiresBroadcast(t *testing.T) {
	e := newTestEnv(t)
	job := e.CreateTestJob(models.BillingModelHourly)
	_, err := e.gate.Rebroadcast(e.Ctx, e.adminID, job.ID)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)
}

func TestEditJob_OnlyWhileOpen(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDriver(models.DriverStatusApproved)
	job := e.CreateTestJob(models.BillingModelHourly)

	city := "Bremen"
	updated, err := e.jobSvc.EditJob(e.Ctx, e.adminID, job.ID, dtos.UpdateJobRequest{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Bremen", updated.City)
	assert.Greater(t, updated.RowVersion, job.RowVersion)

	badEnd := job.WindowStart.Add(-1)
	_, err = e.jobSvc.EditJob(e.Ctx, e.adminID, job.ID, dtos.UpdateJobRequest{WindowEnd: &badEnd})
	requireAppErrorCode(t, err, utils.ErrCodeValidation)

	pastStart := e.Clock.Now().Add(-time.Hour)
	_, err = e.jobSvc.EditJob(e.Ctx, e.adminID, job.ID, dtos.UpdateJobRequest{WindowStart: &pastStart})
	requireAppErrorCode(t, err, utils.ErrCodeValidation)
	assert.True(t, e.job(job.ID).WindowStart.Equal(job.WindowStart), "rejected edit must not persist")

	_, err = e.gate.Approve(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)
	_, err = e.jobSvc.EditJob(e.Ctx, e.adminID, job.ID, dtos.UpdateJobRequest{City: &city})
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)
}

func TestListJobs_StatusFilter(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDriver(models.DriverStatusApproved)
	e.CreateTestJob(models.BillingModelHourly)
	e.approvedJob(models.BillingModelHourly)

	all, err := e.jobSvc.ListJobs(e.Ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all.Jobs, 2)

	open, err := e.jobSvc.ListJobs(e.Ctx, "open", 10, 0)
	require.NoError(t, err)
	require.Len(t, open.Jobs, 1)
	assert.Equal(t, models.JobStatusOpen, open.Jobs[0].Status)

	_, err = e.jobSvc.ListJobs(e.Ctx, "bogus", 10, 0)
	requireAppErrorCode(t, err, utils.ErrCodeValidation)
}

func TestDriverService(t *testing.T) {
	e := newTestEnv(t)
	req := dtos.CreateDriverRequest{
		FirstName: "Sam", LastName: "Lee", Email: "Sam@Drivers.example", PhoneNumber: "+4915112345678", VehicleType: "VAN",
	}
	d, err := e.driverSvc.CreateDriver(e.Ctx, e.adminID, req)
	require.NoError(t, err)
	assert.Equal(t, models.DriverStatusPending, d.Status)
	assert.Equal(t, "sam@drivers.example", d.Email)

	_, err = e.driverSvc.CreateDriver(e.Ctx, e.adminID, req)
	requireAppErrorCode(t, err, "email_exists")

	d, err = e.driverSvc.SetStatus(e.Ctx, e.adminID, d.ID, models.DriverStatusApproved)
	require.NoError(t, err)
	assert.True(t, d.IsEligible())

	_, err = e.driverSvc.SetStatus(e.Ctx, e.adminID, e.NewTestJob(models.BillingModelHourly).ID, models.DriverStatusBlocked)
	requireAppErrorCode(t, err, utils.ErrCodeNotFound)
}
