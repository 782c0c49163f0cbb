package models

import (
	"time"

	"github.com/google/uuid"
)

type NoShowTierType string

const (
	NoShowTierUnder6h   NoShowTierType = "LT_6H"
	NoShowTier6To24h    NoShowTierType = "H6_TO_24"
	NoShowTier24To48h   NoShowTierType = "H24_TO_48"
	NoShowTierAtLeast48 NoShowTierType = "GTE_48H"
	NoShowTierOverride  NoShowTierType = "OVERRIDE"
)

// Label is the operator-facing notation used in reports.
func (t NoShowTierType) Label() string {
	switch t {
	case NoShowTierUnder6h:
		return "<6h"
	case NoShowTier6To24h:
		return "6-24h"
	case NoShowTier24To48h:
		return "24-48h"
	case NoShowTierAtLeast48:
		return ">=48h"
	case NoShowTierOverride:
		return "override"
	}
	return string(t)
}

// NoShowRecord annotates an assignment. It never changes job or assignment
// status.
type NoShowRecord struct {
	ID             uuid.UUID      `json:"id"`
	AssignmentID   uuid.UUID      `json:"assignment_id"`
	Tier           NoShowTierType `json:"tier"`
	FeeCents       int64          `json:"fee_cents"`
	ScheduledStart time.Time      `json:"scheduled_start"`
	ReportedAt     time.Time      `json:"reported_at"`
	ReportedBy     uuid.UUID      `json:"reported_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
