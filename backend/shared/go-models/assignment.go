package models

import (
	"time"

	"github.com/google/uuid"
)

type AssignmentStatusType string

const (
	AssignmentStatusActive    AssignmentStatusType = "ACTIVE"
	AssignmentStatusConfirmed AssignmentStatusType = "CONFIRMED"
	AssignmentStatusCancelled AssignmentStatusType = "CANCELLED"
)

type Assignment struct {
	Versioned

	ID        uuid.UUID            `json:"id"`
	JobID     uuid.UUID            `json:"job_id"`
	DriverID  uuid.UUID            `json:"driver_id"`
	InviteID  uuid.UUID            `json:"invite_id"`
	RateType  RateType             `json:"rate_type"`
	RateCents int64                `json:"rate_cents"`
	Status    AssignmentStatusType `json:"status"`
	AdminNote string               `json:"admin_note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Assignment) GetID() string {
	return a.ID.String()
}

// AcceptanceAudit is append-only. One row per (job, driver).
type AcceptanceAudit struct {
	ID                uuid.UUID        `json:"id"`
	JobID             uuid.UUID        `json:"job_id"`
	DriverID          uuid.UUID        `json:"driver_id"`
	InviteID          uuid.UUID        `json:"invite_id"`
	BillingModel      BillingModelType `json:"billing_model"`
	TermsAcknowledged bool             `json:"terms_acknowledged"`
	OriginIP          string           `json:"origin_ip"`
	UserAgent         string           `json:"user_agent"`
	AcceptedAt        time.Time        `json:"accepted_at"`
}
