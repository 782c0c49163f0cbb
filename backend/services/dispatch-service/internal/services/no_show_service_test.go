package services

import (
	"testing"
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNotice(t *testing.T) {
	start := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		before time.Duration
		want   models.NoShowTierType
	}{
		{"after start", -time.Hour, models.NoShowTierUnder6h},
		{"3h", 3 * time.Hour, models.NoShowTierUnder6h},
		{"just under 6h", 6*time.Hour - time.Second, models.NoShowTierUnder6h},
		{"exactly 6h", 6 * time.Hour, models.NoShowTier6To24h},
		{"12h", 12 * time.Hour, models.NoShowTier6To24h},
		{"exactly 24h", 24 * time.Hour, models.NoShowTier24To48h},
		{"30h", 30 * time.Hour, models.NoShowTier24To48h},
		{"exactly 48h", 48 * time.Hour, models.NoShowTierAtLeast48},
		{"a week", 7 * 24 * time.Hour, models.NoShowTierAtLeast48},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyNotice(start, start.Add(-tc.before)))
		})
	}
}

func TestFeeFor(t *testing.T) {
	assert.Equal(t, int64(25000), FeeFor(models.NoShowTierUnder6h, 0))
	assert.Equal(t, int64(15000), FeeFor(models.NoShowTier6To24h, 0))
	assert.Equal(t, int64(7500), FeeFor(models.NoShowTier24To48h, 0))
	assert.Equal(t, int64(0), FeeFor(models.NoShowTierAtLeast48, 0))
	assert.Equal(t, int64(5000), FeeFor(models.NoShowTierOverride, 5000))
	assert.Equal(t, int64(25000), FeeFor(models.NoShowTierOverride, 99999), "override is capped")
	assert.Equal(t, int64(0), FeeFor(models.NoShowTierOverride, -10))
}

func assignedJob(t *testing.T, e *testEnv) (*models.Job, *models.Assignment) {
	drivers := e.CreateTestDrivers(1, models.DriverStatusApproved)
	job, tokens := e.approvedJob(models.BillingModelHourly)
	require.Equal(t, OutcomeBound, e.accept(tokens[drivers[0].ID], false).Outcome)
	asg, err := e.Assignments.GetByJobID(e.Ctx, job.ID)
	require.NoError(t, err)
	return job, asg
}

func TestNoShowReport_UpsertsSingleRecord(t *testing.T) {
	e := newTestEnv(t)
	job, asg := assignedJob(t, e)
	start := job.ScheduledStart()

	at := start.Add(-3 * time.Hour)
	first, err := e.noShows.Report(e.Ctx, e.adminID, asg.ID, &at, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NoShowTierUnder6h, first.Tier)
	assert.Equal(t, "<6h", first.Tier.Label())
	assert.Equal(t, int64(25000), first.FeeCents)
	assert.Equal(t, start, first.ScheduledStart)

	at = start.Add(-30 * time.Hour)
	second, err := e.noShows.Report(e.Ctx, e.adminID, asg.ID, &at, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second report updates the same record")
	assert.Equal(t, models.NoShowTier24To48h, second.Tier)
	assert.Equal(t, int64(7500), second.FeeCents)

	stored, err := e.NoShows.GetByAssignmentID(e.Ctx, asg.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Tier, stored.Tier)

	// Job and assignment are only annotated.
	assert.Equal(t, models.JobStatusAssigned, e.job(job.ID).Status)
	after, err := e.Assignments.GetByID(e.Ctx, asg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusActive, after.Status)
}

func TestNoShowReport_OverrideAndDefaults(t *testing.T) {
	e := newTestEnv(t)
	job, asg := assignedJob(t, e)

	fee := int64(40000)
	rec, err := e.noShows.Report(e.Ctx, e.adminID, asg.ID, nil, &fee)
	require.NoError(t, err)
	assert.Equal(t, models.NoShowTierOverride, rec.Tier)
	assert.Equal(t, int64(25000), rec.FeeCents)
	assert.Equal(t, e.Clock.Now(), rec.ReportedAt, "defaults to the clock")
	assert.Equal(t, job.ScheduledStart(), rec.ScheduledStart)

	neg := int64(-1)
	_, err = e.noShows.Report(e.Ctx, e.adminID, asg.ID, nil, &neg)
	requireAppErrorCode(t, err, utils.ErrCodeValidation)

	_, err = e.noShows.Report(e.Ctx, e.adminID, uuid.New(), nil, nil)
	requireAppErrorCode(t, err, utils.ErrCodeNotFound)
}

func TestNoShowReport_CancelledAssignment(t *testing.T) {
	e := newTestEnv(t)
	job, asg := assignedJob(t, e)
	_, err := e.gate.Cancel(e.Ctx, e.adminID, job.ID)
	require.NoError(t, err)

	_, err = e.noShows.Report(e.Ctx, e.adminID, asg.ID, nil, nil)
	requireAppErrorCode(t, err, utils.ErrCodeInvalidState)
}

func TestInviteSweep(t *testing.T) {
	e := newTestEnv(t)
	e.CreateTestDrivers(3, models.DriverStatusApproved)
	job, _ := e.approvedJob(models.BillingModelHourly)

	expired, exhausted, err := e.sweep.Run(e.Ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Zero(t, exhausted)

	e.Clock.Advance(models.InviteTTL)
	expired, exhausted, err = e.sweep.Run(e.Ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, expired)
	assert.Equal(t, 1, exhausted)
	assert.Equal(t, models.JobStatusBroadcast, e.job(job.ID).Status, "sweep never changes job status")
}
