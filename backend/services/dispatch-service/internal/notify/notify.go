package notify

import (
	"context"
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
)

// InviteMessage carries everything an invite email needs. The links embed
// the raw token, so the message must never be logged.
type InviteMessage struct {
	Job        *models.Job
	Driver     *models.Driver
	AcceptURL  string
	DeclineURL string
	ExpiresAt  time.Time
}

// ConfirmationMessage is sent to the driver once an accept has been bound.
type ConfirmationMessage struct {
	Job        *models.Job
	Driver     *models.Driver
	Assignment *models.Assignment
}

// Notifier delivers driver-facing email.
type Notifier interface {
	// CheckConfig fails with utils.ErrConfiguration when the sender identity
	// is missing or off the verified domain.
	CheckConfig() error
	SendInvite(ctx context.Context, msg InviteMessage) error
	SendAssignmentConfirmation(ctx context.Context, msg ConfirmationMessage) error
}

// OperatorAlerter notifies the on-call operator.
type OperatorAlerter interface {
	// AlertNoEligibleDrivers returns the recipient it tried, or "" when no
	// operator channel is configured.
	AlertNoEligibleDrivers(ctx context.Context, job *models.Job) (string, error)
}
