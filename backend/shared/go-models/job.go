package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatusType string

const (
	JobStatusOpen      JobStatusType = "OPEN"
	JobStatusBroadcast JobStatusType = "BROADCAST"
	JobStatusAssigned  JobStatusType = "ASSIGNED"
	JobStatusConfirmed JobStatusType = "CONFIRMED"
	JobStatusCompleted JobStatusType = "COMPLETED"
	JobStatusCancelled JobStatusType = "CANCELLED"
)

// jobTransitions lists every forward edge of the job lifecycle.
// Nothing leaves COMPLETED or CANCELLED.
var jobTransitions = map[JobStatusType][]JobStatusType{
	JobStatusOpen:      {JobStatusBroadcast, JobStatusCancelled},
	JobStatusBroadcast: {JobStatusAssigned, JobStatusCancelled},
	JobStatusAssigned:  {JobStatusConfirmed, JobStatusCancelled},
	JobStatusConfirmed: {JobStatusCompleted},
}

func (s JobStatusType) IsValid() bool {
	switch s {
	case JobStatusOpen, JobStatusBroadcast, JobStatusAssigned,
		JobStatusConfirmed, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s JobStatusType) CanTransitionTo(next JobStatusType) bool {
	for _, n := range jobTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// IsCancellable is true for every state that may still move to CANCELLED.
func (s JobStatusType) IsCancellable() bool {
	return s.CanTransitionTo(JobStatusCancelled)
}

// CancellableJobStatuses in the order the lifecycle visits them.
func CancellableJobStatuses() []JobStatusType {
	return []JobStatusType{JobStatusOpen, JobStatusBroadcast, JobStatusAssigned}
}

type BillingModelType string

const (
	BillingModelHourly    BillingModelType = "HOURLY"
	BillingModelFlatRate  BillingModelType = "FLAT_RATE"
	BillingModelPlacement BillingModelType = "PLACEMENT"
)

func (b BillingModelType) IsValid() bool {
	switch b {
	case BillingModelHourly, BillingModelFlatRate, BillingModelPlacement:
		return true
	}
	return false
}

// RequiresTermsAck is true when a driver must explicitly accept the terms of
// service for this billing model before an acceptance can bind.
func (b BillingModelType) RequiresTermsAck() bool {
	return b == BillingModelFlatRate || b == BillingModelPlacement
}

type RateType string

const (
	RateTypeHourly RateType = "HOURLY"
	RateTypeFlat   RateType = "FLAT"
)

func (r RateType) IsValid() bool {
	return r == RateTypeHourly || r == RateTypeFlat
}

type Job struct {
	Versioned

	ID     uuid.UUID     `json:"id"`
	Status JobStatusType `json:"status"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`

	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	VehicleType  string    `json:"vehicle_type"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	Requirements string    `json:"requirements"`

	BillingModel     BillingModelType `json:"billing_model"`
	DefaultRateType  RateType         `json:"default_rate_type"`
	DefaultRateCents int64            `json:"default_rate_cents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) GetID() string {
	return j.ID.String()
}

// ScheduledStart is the moment a no-show notice period is measured against.
func (j *Job) ScheduledStart() time.Time {
	return j.WindowStart
}
