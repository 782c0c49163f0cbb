package constants

import (
	"time"
)

// Invite and broadcast settings
const (
	// Fixed pause between two outbound invite emails when no shared
	// rate limiter is configured.
	DefaultSendDelay = 600 * time.Millisecond

	// Redis token bucket defaults, shared by every replica.
	DefaultSendRatePerSec   = 2.0
	DefaultSendBurst        = 1
	SendBucketKey           = "dispatch:sendgrid:bucket"
	SendBucketTTL           = 10 * time.Minute
	SendBucketPollInterval  = 100 * time.Millisecond
	InviteSweepSchedule     = "@every 10m"
	DefaultJobListPageLimit = 50
)

// No-show notice boundaries, measured from report time to scheduled start.
const (
	NoShowBoundaryShort = 6 * time.Hour
	NoShowBoundaryMid   = 24 * time.Hour
	NoShowBoundaryLong  = 48 * time.Hour
)

// No-show fee table in cents. Every fee, including an operator override, is
// capped at MaxNoShowFeeCents.
const (
	NoShowFeeUnder6hCents   int64 = 25000
	NoShowFee6To24hCents    int64 = 15000
	NoShowFee24To48hCents   int64 = 7500
	NoShowFeeAtLeast48Cents int64 = 0
	MaxNoShowFeeCents       int64 = 25000
)

// Outbound template identifiers, recorded in the delivery log.
const (
	TemplateJobInvite              = "job_invite_v1"
	TemplateAssignmentConfirmation = "assignment_confirmation_v1"
	TemplateOperatorNoEligible     = "operator_no_eligible_drivers_v1"
)

// Respond page copy. Both failure outcomes share one message so a caller
// cannot tell an unknown token from a lost race.
const (
	MsgBound           = "You have been assigned to this job. A confirmation email is on its way."
	MsgDeclined        = "Thanks, you have declined this job."
	MsgUnavailable     = "This job is no longer available."
	MsgTermsRequired   = "Please confirm the terms of service to accept this job."
	MsgInvalidAction   = "Unknown action. Use accept or decline."
	ErrMsgInvalidState = "The job is not in a state that allows this action"
)
