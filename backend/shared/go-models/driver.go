package models

import (
	"time"

	"github.com/google/uuid"
)

type DriverStatusType string

const (
	DriverStatusPending  DriverStatusType = "PENDING"
	DriverStatusApproved DriverStatusType = "APPROVED"
	DriverStatusActive   DriverStatusType = "ACTIVE"
	DriverStatusBlocked  DriverStatusType = "BLOCKED"
)

func (s DriverStatusType) IsValid() bool {
	switch s {
	case DriverStatusPending, DriverStatusApproved, DriverStatusActive, DriverStatusBlocked:
		return true
	}
	return false
}

// IsEligible reports whether a driver in this state may be sent job invites.
func (s DriverStatusType) IsEligible() bool {
	return s == DriverStatusApproved || s == DriverStatusActive
}

type Driver struct {
	Versioned

	ID          uuid.UUID        `json:"id"`
	Status      DriverStatusType `json:"status"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Email       string           `json:"email"`
	PhoneNumber string           `json:"phone_number"`
	VehicleType string           `json:"vehicle_type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Driver) GetID() string {
	return d.ID.String()
}

func (d *Driver) IsEligible() bool {
	return d != nil && d.Status.IsEligible()
}

func (d *Driver) FullName() string {
	if d.LastName == "" {
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}
