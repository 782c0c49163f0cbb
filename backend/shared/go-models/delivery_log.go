package models

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryChannelType string

const (
	DeliveryChannelEmail DeliveryChannelType = "EMAIL"
	DeliveryChannelSMS   DeliveryChannelType = "SMS"
)

type DeliveryStatusType string

const (
	DeliveryStatusSent    DeliveryStatusType = "SENT"
	DeliveryStatusFailed  DeliveryStatusType = "FAILED"
	DeliveryStatusSkipped DeliveryStatusType = "SKIPPED"
)

// DeliveryLogEntry is one notification attempt. Append-only.
type DeliveryLogEntry struct {
	ID         uuid.UUID           `json:"id"`
	JobID      uuid.UUID           `json:"job_id"`
	DriverID   *uuid.UUID          `json:"driver_id,omitempty"`
	Recipient  string              `json:"recipient"`
	Channel    DeliveryChannelType `json:"channel"`
	TemplateID string              `json:"template_id"`
	Status     DeliveryStatusType  `json:"status"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
