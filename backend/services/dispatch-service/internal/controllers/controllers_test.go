package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/notify"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/ratelimit"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/routes"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/services"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-testhelpers"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]string
}

func (n *captureNotifier) CheckConfig() error { return nil }

func (n *captureNotifier) SendInvite(_ context.Context, msg notify.InviteMessage) error {
	u, err := url.Parse(msg.AcceptURL)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[msg.Driver.ID] = u.Query().Get("token")
	return nil
}

func (n *captureNotifier) SendAssignmentConfirmation(context.Context, notify.ConfirmationMessage) error {
	return nil
}

type noAlerts struct{}

func (noAlerts) AlertNoEligibleDrivers(context.Context, *models.Job) (string, error) { return "", nil }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type httpEnv struct {
	*testhelpers.TestHelper
	router   *mux.Router
	notifier *captureNotifier
	pinger   *fakePinger
	adminJWT string
}

func newHTTPEnv(t *testing.T) *httpEnv {
	h := testhelpers.NewMemTestHelper(t)
	n := &captureNotifier{tokens: map[uuid.UUID]string{}}
	p := &fakePinger{}

	jobSvc := services.NewJobService(h.Jobs, h.AdminLogs, h.Clock)
	driverSvc := services.NewDriverService(h.Drivers, h.AdminLogs)
	issuer := services.NewInviteIssuer(h.Invites, h.Clock, "https://dispatch.example.com")
	dispatcher := services.NewBroadcastDispatcher(h.Drivers, h.Invites, h.DeliveryLog, issuer, n, noAlerts{}, ratelimit.NewFixedDelayPacer(0))
	gate := services.NewAdminGate(h.Jobs, h.Drivers, h.Invites, h.AdminLogs, dispatcher, h.Clock)
	manager := services.NewAssignmentManager(h.Jobs, h.Drivers, h.Invites, h.Assignments, h.Audits, h.NoShows, h.DeliveryLog, h.AdminLogs, n)
	resolver := services.NewResponseResolver(h.Jobs, h.Invites, h.Assignments, manager, h.Clock)
	noShows := services.NewNoShowService(h.Jobs, h.Assignments, h.NoShows, h.AdminLogs, h.Clock)

	router := NewRouter(Controllers{
		Health:      NewHealthController(p),
		Jobs:        NewJobsController(jobSvc),
		Invites:     NewInvitesController(resolver),
		AdminJobs:   NewAdminJobsController(jobSvc, gate, manager),
		Assignments: NewAdminAssignmentsController(manager, noShows),
		Drivers:     NewAdminDriversController(driverSvc),
	}, &h.PrivateKey.PublicKey)

	return &httpEnv{
		TestHelper: h,
		router:     router,
		notifier:   n,
		pinger:     p,
		adminJWT:   h.CreateAdminJWT(uuid.New()),
	}
}

func (e *httpEnv) admin(method, path string, body any) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw = e.MustJSON(body)
	}
	return e.Serve(e.router, e.BuildAuthRequest(method, path, e.adminJWT, raw))
}

func (e *httpEnv) respond(query url.Values, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, routes.InvitesRespond+"?"+query.Encode(), nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return e.Serve(e.router, req)
}

func jobPath(tmpl string, id uuid.UUID) string {
	return strings.Replace(tmpl, "{id}", id.String(), 1)
}

// approve creates a job with two eligible drivers and approves it over HTTP.
func (e *httpEnv) approve(billing models.BillingModelType) *models.Job {
	e.CreateTestDrivers(2, models.DriverStatusActive)
	job := e.CreateTestJob(billing)
	rr := e.admin(http.MethodPost, jobPath(routes.AdminJobApprove, job.ID), nil)
	require.Equal(e.T, http.StatusOK, rr.Code, rr.Body.String())

	var out dtos.BroadcastResponse
	e.DecodeJSON(rr.Body, &out)
	require.Equal(e.T, 2, out.Eligible)
	require.Equal(e.T, 2, out.Sent)
	require.Equal(e.T, "BROADCAST", out.Status)
	return job
}

func (e *httpEnv) tokens() []string {
	e.notifier.mu.Lock()
	defer e.notifier.mu.Unlock()
	var out []string
	for _, tok := range e.notifier.tokens {
		out = append(out, tok)
	}
	return out
}

func TestCreateJobHandler(t *testing.T) {
	e := newHTTPEnv(t)
	start := e.Clock.Now().Add(48 * time.Hour)

	valid := dtos.CreateJobRequest{
		CustomerName:     "Acme Logistics",
		CustomerEmail:    "ops@acme.example.com",
		CustomerPhone:    "+4940123456",
		Street:           "1 Harbour Road",
		City:             "Hamburg",
		PostalCode:       "20457",
		Country:          "DE",
		VehicleType:      "VAN",
		WindowStart:      start,
		WindowEnd:        start.Add(4 * time.Hour),
		BillingModel:     models.BillingModelHourly,
		DefaultRateType:  models.RateTypeHourly,
		DefaultRateCents: 3500,
	}
	rr := e.Serve(e.router, e.BuildAuthRequest(http.MethodPost, routes.Jobs, "", e.MustJSON(valid)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var job models.Job
	e.DecodeJSON(rr.Body, &job)
	assert.Equal(t, models.JobStatusOpen, job.Status)

	invalid := valid
	invalid.CustomerPhone = "040 123"
	invalid.WindowEnd = start.Add(-time.Hour)
	rr = e.Serve(e.router, e.BuildAuthRequest(http.MethodPost, routes.Jobs, "", e.MustJSON(invalid)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var errBody utils.ErrorResponse
	e.DecodeJSON(rr.Body, &errBody)
	assert.Equal(t, utils.ErrCodeValidation, errBody.Code)
	assert.NotNil(t, errBody.Details)

	rr = e.Serve(e.router, e.BuildAuthRequest(http.MethodPost, routes.Jobs, "", []byte("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	e := newHTTPEnv(t)
	job := e.CreateTestJob(models.BillingModelHourly)
	path := jobPath(routes.AdminJobApprove, job.ID)

	rr := e.Serve(e.router, e.BuildAuthRequest(http.MethodPost, path, "", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	driverJWT := e.CreateRoleJWT(uuid.New(), "driver")
	rr = e.Serve(e.router, e.BuildAuthRequest(http.MethodPost, path, driverJWT, nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	got, err := e.Jobs.GetByID(e.Ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusOpen, got.Status)
}

func TestRespondHandler_AcceptRaceOverHTTP(t *testing.T) {
	e := newHTTPEnv(t)
	job := e.approve(models.BillingModelHourly)
	toks := e.tokens()
	require.Len(t, toks, 2)

	rr := e.respond(url.Values{"action": {"accept"}, "token": {toks[0]}, "format": {"json"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var won dtos.RespondResponse
	e.DecodeJSON(rr.Body, &won)
	assert.Equal(t, "BOUND", won.Status)

	rr = e.respond(url.Values{"action": {"accept"}, "token": {toks[1]}}, "application/json")
	require.Equal(t, http.StatusGone, rr.Code)
	var lost dtos.RespondResponse
	e.DecodeJSON(rr.Body, &lost)
	assert.Equal(t, "NO_LONGER_AVAILABLE", lost.Status)
	assert.Equal(t, constants.MsgUnavailable, lost.Message)

	// Unknown tokens read the same to a browser.
	rr = e.respond(url.Values{"action": {"accept"}, "token": {strings.Repeat("A", 43)}}, "text/html")
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), constants.MsgUnavailable)

	rr = e.admin(http.MethodGet, jobPath(routes.AdminJob, job.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail dtos.JobDetailResponse
	e.DecodeJSON(rr.Body, &detail)
	assert.Equal(t, models.JobStatusAssigned, detail.Job.Status)
	require.NotNil(t, detail.Assignment)
	assert.Len(t, detail.Audits, 1)
}

func TestRespondHandler_TermsPageThenFormPost(t *testing.T) {
	e := newHTTPEnv(t)
	e.approve(models.BillingModelFlatRate)
	tok := e.tokens()[0]

	rr := e.respond(url.Values{"action": {"accept"}, "token": {tok}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	page := rr.Body.String()
	assert.Contains(t, page, `name="tos_ack" value="true"`)
	assert.Contains(t, page, `method="POST"`)

	rr = e.respond(url.Values{"action": {"accept"}, "token": {tok}, "format": {"json"}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body dtos.RespondResponse
	e.DecodeJSON(rr.Body, &body)
	assert.Equal(t, utils.ErrCodeTermsNotAcknowledged, body.Code)

	form := url.Values{"action": {"accept"}, "token": {tok}, "tos_ack": {"true"}}
	req := httptest.NewRequest(http.MethodPost, routes.InvitesRespond, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = e.Serve(e.router, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Job assigned")
}

func TestRespondHandler_Decline(t *testing.T) {
	e := newHTTPEnv(t)
	e.approve(models.BillingModelHourly)
	tok := e.tokens()[0]

	rr := e.respond(url.Values{"action": {"decline"}, "token": {tok}, "format": {"json"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body dtos.RespondResponse
	e.DecodeJSON(rr.Body, &body)
	assert.Equal(t, "DECLINED", body.Status)

	rr = e.respond(url.Values{"action": {"accept"}, "token": {tok}, "format": {"json"}}, "")
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestRespondHandler_InvalidAction(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.respond(url.Values{"action": {"maybe"}, "token": {"x"}, "format": {"json"}}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var errBody utils.ErrorResponse
	e.DecodeJSON(rr.Body, &errBody)
	assert.Equal(t, "invalid_action", errBody.Code)

	rr = e.respond(url.Values{"action": {"maybe"}, "token": {"x"}}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
}

func TestAdminJobLifecycleOverHTTP(t *testing.T) {
	e := newHTTPEnv(t)
	job := e.approve(models.BillingModelHourly)
	tok := e.tokens()[0]
	rr := e.respond(url.Values{"action": {"accept"}, "token": {tok}, "format": {"json"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	asg, err := e.Assignments.GetByJobID(e.Ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, asg)

	rr = e.admin(http.MethodPatch, jobPath(routes.AdminAssignment, asg.ID), map[string]any{
		"rate_type": "FLAT", "rate_cents": 42000, "admin_note": "agreed by phone",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated models.Assignment
	e.DecodeJSON(rr.Body, &updated)
	assert.Equal(t, int64(42000), updated.RateCents)

	rr = e.admin(http.MethodPatch, jobPath(routes.AdminAssignment, asg.ID), map[string]any{"rate_cents": 100})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	reportedAt := job.ScheduledStart().Add(-3 * time.Hour)
	rr = e.admin(http.MethodPost, jobPath(routes.AdminAssignmentNoShow, asg.ID), map[string]any{"reported_at": reportedAt})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var ns dtos.NoShowResponse
	e.DecodeJSON(rr.Body, &ns)
	assert.Equal(t, "LT_6H", ns.Tier)
	assert.Equal(t, int64(25000), ns.FeeCents)

	rr = e.admin(http.MethodPost, jobPath(routes.AdminJobConfirm, job.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = e.admin(http.MethodPost, jobPath(routes.AdminJobConfirm, job.ID), nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = e.admin(http.MethodPost, jobPath(routes.AdminJobComplete, job.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var done models.Job
	e.DecodeJSON(rr.Body, &done)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
}

func TestAdminCancelAndList(t *testing.T) {
	e := newHTTPEnv(t)
	job := e.approve(models.BillingModelHourly)
	e.CreateTestJob(models.BillingModelHourly)

	rr := e.admin(http.MethodPost, jobPath(routes.AdminJobCancel, job.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cancelled dtos.CancelJobResponse
	e.DecodeJSON(rr.Body, &cancelled)
	assert.Equal(t, "BROADCAST", cancelled.PreviousStatus)
	assert.Equal(t, int64(2), cancelled.ExpiredInvites)

	rr = e.respond(url.Values{"action": {"accept"}, "token": {e.tokens()[0]}, "format": {"json"}}, "")
	assert.Equal(t, http.StatusGone, rr.Code)

	rr = e.admin(http.MethodGet, routes.AdminJobs+"?status=open", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list dtos.ListJobsResponse
	e.DecodeJSON(rr.Body, &list)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, models.JobStatusOpen, list.Jobs[0].Status)

	rr = e.admin(http.MethodGet, routes.AdminJobs+"?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = e.admin(http.MethodGet, routes.AdminJobs+"?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminJobPathErrors(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.admin(http.MethodGet, jobPath(routes.AdminJob, uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.admin(http.MethodPost, strings.Replace(routes.AdminJobApprove, "{id}", "not-a-uuid", 1), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminDriverHandlers(t *testing.T) {
	e := newHTTPEnv(t)
	req := dtos.CreateDriverRequest{
		FirstName: "Rita", LastName: "Road", Email: "rita@drivers.example.com",
		PhoneNumber: "+4915112345678", VehicleType: "VAN",
	}
	rr := e.admin(http.MethodPost, routes.AdminDrivers, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var drv models.Driver
	e.DecodeJSON(rr.Body, &drv)
	assert.Equal(t, models.DriverStatusPending, drv.Status)

	rr = e.admin(http.MethodPost, routes.AdminDrivers, req)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = e.admin(http.MethodPatch, jobPath(routes.AdminDriverStatus, drv.ID), map[string]string{"status": "ACTIVE"})
	require.Equal(t, http.StatusOK, rr.Code)
	e.DecodeJSON(rr.Body, &drv)
	assert.Equal(t, models.DriverStatusActive, drv.Status)

	rr = e.admin(http.MethodPatch, jobPath(routes.AdminDriverStatus, drv.ID), map[string]string{"status": "RETIRED"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthCheckHandler(t *testing.T) {
	e := newHTTPEnv(t)

	rr := e.Serve(e.router, httptest.NewRequest(http.MethodGet, routes.Health, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	e.pinger.err = errors.New("connection refused")
	rr = e.Serve(e.router, httptest.NewRequest(http.MethodGet, routes.Health, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newHTTPEnv(t)
	e.approve(models.BillingModelHourly)

	rr := e.Serve(e.router, httptest.NewRequest(http.MethodGet, routes.Metrics, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dispatch_invites_issued_total")
}
