package services

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/notify"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/ratelimit"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-testhelpers"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu            sync.Mutex
	configErr     error
	failFor       map[string]bool
	beforeSend    func(msg notify.InviteMessage)
	invites       []notify.InviteMessage
	confirmations []notify.ConfirmationMessage
}

func (f *fakeNotifier) CheckConfig() error { return f.configErr }

func (f *fakeNotifier) SendInvite(_ context.Context, msg notify.InviteMessage) error {
	if f.beforeSend != nil {
		f.beforeSend(msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[msg.Driver.Email] {
		return errors.New("smtp: mailbox unavailable")
	}
	f.invites = append(f.invites, msg)
	return nil
}

func (f *fakeNotifier) SendAssignmentConfirmation(_ context.Context, msg notify.ConfirmationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, msg)
	return nil
}

// tokens returns the raw token sent to each driver, keyed by driver id.
func (f *fakeNotifier) tokens(t *testing.T) map[uuid.UUID]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]string, len(f.invites))
	for _, m := range f.invites {
		u, err := url.Parse(m.AcceptURL)
		require.NoError(t, err)
		out[m.Driver.ID] = u.Query().Get("token")
	}
	return out
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []uuid.UUID
}

func (f *fakeAlerter) AlertNoEligibleDrivers(_ context.Context, job *models.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, job.ID)
	return "+4915100000000", nil
}

type testEnv struct {
	*testhelpers.TestHelper
	notifier *fakeNotifier
	alerter  *fakeAlerter
	adminID  uuid.UUID

	jobSvc     *JobService
	driverSvc  *DriverService
	issuer     *InviteIssuer
	dispatcher *BroadcastDispatcher
	gate       *AdminGate
	manager    *AssignmentManager
	resolver   *ResponseResolver
	noShows    *NoShowService
	sweep      *InviteSweepService
}

func newTestEnv(t *testing.T) *testEnv {
	h := testhelpers.NewMemTestHelper(t)
	e := &testEnv{
		TestHelper: h,
		notifier:   &fakeNotifier{failFor: map[string]bool{}},
		alerter:    &fakeAlerter{},
		adminID:    uuid.New(),
	}
	e.jobSvc = NewJobService(h.Jobs, h.AdminLogs, h.Clock)
	e.driverSvc = NewDriverService(h.Drivers, h.AdminLogs)
	e.issuer = NewInviteIssuer(h.Invites, h.Clock, "https://dispatch.example.com/")
	e.dispatcher = NewBroadcastDispatcher(h.Drivers, h.Invites, h.DeliveryLog, e.issuer, e.notifier, e.alerter, ratelimit.NewFixedDelayPacer(0))
	e.gate = NewAdminGate(h.Jobs, h.Drivers, h.Invites, h.AdminLogs, e.dispatcher, h.Clock)
	e.manager = NewAssignmentManager(h.Jobs, h.Drivers, h.Invites, h.Assignments, h.Audits, h.NoShows, h.DeliveryLog, h.AdminLogs, e.notifier)
	e.resolver = NewResponseResolver(h.Jobs, h.Invites, h.Assignments, e.manager, h.Clock)
	e.noShows = NewNoShowService(h.Jobs, h.Assignments, h.NoShows, h.AdminLogs, h.Clock)
	e.sweep = NewInviteSweepService(h.Invites, h.Clock)
	return e
}

// approvedJob creates an OPEN job, approves it and returns it with the
// tokens the drivers received.
func (e *testEnv) approvedJob(billing models.BillingModelType) (*models.Job, map[uuid.UUID]string) {
	job := e.CreateTestJob(billing)
	_, err := e.gate.Approve(e.Ctx, e.adminID, job.ID)
	require.NoError(e.T, err)
	return job, e.notifier.tokens(e.T)
}

func (e *testEnv) accept(token string, ack bool) *RespondResult {
	res, err := e.resolver.Respond(e.Ctx, RespondInput{
		Token: token, Action: ActionAccept, TermsAck: ack,
		OriginIP: "203.0.113.7", UserAgent: "test-agent",
	})
	require.NoError(e.T, err)
	return res
}

func (e *testEnv) decline(token string) *RespondResult {
	res, err := e.resolver.Respond(e.Ctx, RespondInput{Token: token, Action: ActionDecline})
	require.NoError(e.T, err)
	return res
}

func (e *testEnv) invitesByDriver(jobID uuid.UUID) map[uuid.UUID]*models.Invite {
	invs, err := e.Invites.ListByJob(e.Ctx, jobID)
	require.NoError(e.T, err)
	out := make(map[uuid.UUID]*models.Invite, len(invs))
	for _, inv := range invs {
		out[inv.DriverID] = inv
	}
	return out
}

func (e *testEnv) job(id uuid.UUID) *models.Job {
	j, err := e.Jobs.GetByID(e.Ctx, id)
	require.NoError(e.T, err)
	require.NotNil(e.T, j)
	return j
}

func dtosUpdate(rt *models.RateType, cents *int64, note *string) dtos.UpdateAssignmentRequest {
	return dtos.UpdateAssignmentRequest{RateType: rt, RateCents: cents, AdminNote: note}
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}
