package controllers

import (
	"crypto/rsa"
	"net/http"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/routes"
	"github.com/driverpool/mono-repo/backend/shared/go-middleware"
	"github.com/gorilla/mux"
)

type Controllers struct {
	Health      *HealthController
	Jobs        *JobsController
	Invites     *InvitesController
	AdminJobs   *AdminJobsController
	Assignments *AdminAssignmentsController
	Drivers     *AdminDriversController
}

// NewRouter mounts the public routes and the admin subrouter.
func NewRouter(c Controllers, pub *rsa.PublicKey) *mux.Router {
	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, c.Health.HealthCheckHandler).Methods(http.MethodGet)
	router.Handle(routes.Metrics, metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc(routes.Jobs, c.Jobs.CreateJobHandler).Methods(http.MethodPost)
	router.HandleFunc(routes.InvitesRespond, c.Invites.RespondHandler).Methods(http.MethodGet, http.MethodPost)

	admin := router.NewRoute().Subrouter()
	admin.Use(middleware.AdminAuthMiddleware(pub))

	admin.HandleFunc(routes.AdminJobs, c.AdminJobs.ListJobsHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminJob, c.AdminJobs.GetJobHandler).Methods(http.MethodGet)
	admin.HandleFunc(routes.AdminJob, c.AdminJobs.EditJobHandler).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminJobApprove, c.AdminJobs.ApproveJobHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminJobRebroadcast, c.AdminJobs.RebroadcastJobHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminJobCancel, c.AdminJobs.CancelJobHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminJobConfirm, c.AdminJobs.ConfirmJobHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminJobComplete, c.AdminJobs.CompleteJobHandler).Methods(http.MethodPost)

	admin.HandleFunc(routes.AdminAssignment, c.Assignments.UpdateAssignmentHandler).Methods(http.MethodPatch)
	admin.HandleFunc(routes.AdminAssignmentNoShow, c.Assignments.ReportNoShowHandler).Methods(http.MethodPost)

	admin.HandleFunc(routes.AdminDrivers, c.Drivers.CreateDriverHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.AdminDriverStatus, c.Drivers.SetDriverStatusHandler).Methods(http.MethodPatch)

	return router
}
