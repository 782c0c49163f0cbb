package dtos

import (
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
)

// UpdateAssignmentRequest sets the admin rate override and note.
type UpdateAssignmentRequest struct {
	RateType  *models.RateType `json:"rate_type,omitempty" validate:"omitempty,oneof=HOURLY FLAT"`
	RateCents *int64           `json:"rate_cents,omitempty" validate:"omitempty,gte=0"`
	AdminNote *string          `json:"admin_note,omitempty" validate:"omitempty,max=2000"`
}

type ReportNoShowRequest struct {
	// Defaults to the server clock when omitted.
	ReportedAt       *time.Time `json:"reported_at,omitempty"`
	OverrideFeeCents *int64     `json:"override_fee_cents,omitempty" validate:"omitempty,gte=0"`
}

type NoShowResponse struct {
	AssignmentID string `json:"assignment_id"`
	Tier         string `json:"tier"`
	TierLabel    string `json:"tier_label"`
	FeeCents     int64  `json:"fee_cents"`
}
