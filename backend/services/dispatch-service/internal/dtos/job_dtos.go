// backend/services/dispatch-service/internal/dtos/job_dtos.go

package dtos

import (
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
)

// CreateJobRequest is the public customer intake payload.
type CreateJobRequest struct {
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone" validate:"required,e164"`

	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`

	VehicleType  string    `json:"vehicle_type" validate:"required,max=50"`
	WindowStart  time.Time `json:"window_start" validate:"required"`
	WindowEnd    time.Time `json:"window_end" validate:"required,gtfield=WindowStart"`
	Requirements string    `json:"requirements" validate:"max=2000"`

	BillingModel     models.BillingModelType `json:"billing_model" validate:"required,oneof=HOURLY FLAT_RATE PLACEMENT"`
	DefaultRateType  models.RateType         `json:"default_rate_type" validate:"required,oneof=HOURLY FLAT"`
	DefaultRateCents int64                   `json:"default_rate_cents" validate:"gte=0"`
}

// UpdateJobRequest edits an OPEN job. Nil fields are left unchanged.
type UpdateJobRequest struct {
	CustomerName  *string `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	CustomerEmail *string `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerPhone *string `json:"customer_phone,omitempty" validate:"omitempty,e164"`

	Street     *string `json:"street,omitempty" validate:"omitempty,max=200"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country    *string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`

	VehicleType  *string    `json:"vehicle_type,omitempty" validate:"omitempty,max=50"`
	WindowStart  *time.Time `json:"window_start,omitempty"`
	WindowEnd    *time.Time `json:"window_end,omitempty"`
	Requirements *string    `json:"requirements,omitempty" validate:"omitempty,max=2000"`

	BillingModel     *models.BillingModelType `json:"billing_model,omitempty" validate:"omitempty,oneof=HOURLY FLAT_RATE PLACEMENT"`
	DefaultRateType  *models.RateType         `json:"default_rate_type,omitempty" validate:"omitempty,oneof=HOURLY FLAT"`
	DefaultRateCents *int64                   `json:"default_rate_cents,omitempty" validate:"omitempty,gte=0"`
}

// BroadcastResponse reports a broadcast sweep.
type BroadcastResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Eligible int    `json:"eligible"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
}

type CancelJobResponse struct {
	Job                 *models.Job `json:"job"`
	PreviousStatus      string      `json:"previous_status"`
	ExpiredInvites      int64       `json:"expired_invites"`
	CancelledAssignment bool        `json:"cancelled_assignment"`
}

type ListJobsResponse struct {
	Jobs   []*models.Job `json:"jobs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// JobDetailResponse is the admin view of a job and everything hanging off it.
type JobDetailResponse struct {
	Job         *models.Job                `json:"job"`
	Invites     []*models.Invite           `json:"invites"`
	Assignment  *models.Assignment         `json:"assignment,omitempty"`
	Audits      []*models.AcceptanceAudit  `json:"acceptance_audits"`
	NoShow      *models.NoShowRecord       `json:"no_show,omitempty"`
	DeliveryLog []*models.DeliveryLogEntry `json:"delivery_log"`
}

type ConfirmJobResponse struct {
	Job        *models.Job        `json:"job"`
	Assignment *models.Assignment `json:"assignment"`
}
