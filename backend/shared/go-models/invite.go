package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteTTL is fixed; invites are never renewed.
const InviteTTL = 48 * time.Hour

type InviteStatusType string

const (
	InviteStatusPending    InviteStatusType = "PENDING"
	InviteStatusAccepted   InviteStatusType = "ACCEPTED"
	InviteStatusDeclined   InviteStatusType = "DECLINED"
	InviteStatusExpired    InviteStatusType = "EXPIRED"
	InviteStatusSuperseded InviteStatusType = "SUPERSEDED"
)

func (s InviteStatusType) IsValid() bool {
	switch s {
	case InviteStatusPending, InviteStatusAccepted, InviteStatusDeclined,
		InviteStatusExpired, InviteStatusSuperseded:
		return true
	}
	return false
}

// Invite is a single-use capability for one driver to accept or decline one
// job. Only the hash of the token is stored.
type Invite struct {
	ID          uuid.UUID        `json:"id"`
	JobID       uuid.UUID        `json:"job_id"`
	DriverID    uuid.UUID        `json:"driver_id"`
	TokenHash   string           `json:"-"`
	Status      InviteStatusType `json:"status"`
	IssuedAt    time.Time        `json:"issued_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
}

func (i *Invite) GetID() string {
	return i.ID.String()
}

// IsExpiredAt is true once now has reached ExpiresAt.
func (i *Invite) IsExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsLiveAt is true for a pending invite that has not yet expired.
func (i *Invite) IsLiveAt(now time.Time) bool {
	return i.Status == InviteStatusPending && !i.IsExpiredAt(now)
}
