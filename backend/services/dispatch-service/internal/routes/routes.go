package routes

const (
	Health  = "/health"
	Metrics = "/metrics"

	// Public
	Jobs           = "/api/v1/jobs"
	InvitesRespond = "/api/v1/invites/respond"

	// Admin
	AdminJobs             = "/api/v1/admin/jobs"
	AdminJob              = "/api/v1/admin/jobs/{id}"
	AdminJobApprove       = "/api/v1/admin/jobs/{id}/approve"
	AdminJobRebroadcast   = "/api/v1/admin/jobs/{id}/rebroadcast"
	AdminJobCancel        = "/api/v1/admin/jobs/{id}/cancel"
	AdminJobConfirm       = "/api/v1/admin/jobs/{id}/confirm"
	AdminJobComplete      = "/api/v1/admin/jobs/{id}/complete"
	AdminAssignment       = "/api/v1/admin/assignments/{id}"
	AdminAssignmentNoShow = "/api/v1/admin/assignments/{id}/no-show"
	AdminDrivers          = "/api/v1/admin/drivers"
	AdminDriverStatus     = "/api/v1/admin/drivers/{id}/status"
)
