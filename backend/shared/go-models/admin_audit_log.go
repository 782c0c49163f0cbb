// backend/shared/go-models/admin_audit_log.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreate      AuditAction = "CREATE"
	AuditUpdate      AuditAction = "UPDATE"
	AuditApprove     AuditAction = "APPROVE"
	AuditRebroadcast AuditAction = "REBROADCAST"
	AuditCancel      AuditAction = "CANCEL"
	AuditConfirm     AuditAction = "CONFIRM"
	AuditComplete    AuditAction = "COMPLETE"
	AuditNoShow      AuditAction = "NO_SHOW"
)

type AuditTargetType string

const (
	TargetJob        AuditTargetType = "JOB"
	TargetDriver     AuditTargetType = "DRIVER"
	TargetAssignment AuditTargetType = "ASSIGNMENT"
)

type AdminAuditLog struct {
	ID         uuid.UUID        `json:"id"`
	AdminID    uuid.UUID        `json:"admin_id"`
	Action     AuditAction      `json:"action"`
	TargetID   uuid.UUID        `json:"target_id"`
	TargetType AuditTargetType  `json:"target_type"`
	Details    *json.RawMessage `json:"details,omitempty"` // JSONB field for before/after states
	CreatedAt  time.Time        `json:"created_at"`
}
