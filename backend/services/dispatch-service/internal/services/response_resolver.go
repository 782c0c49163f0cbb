// backend/services/dispatch-service/internal/services/response_resolver.go

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	internal_utils "github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/utils"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeBound             Outcome = "BOUND"
	OutcomeDeclined          Outcome = "DECLINED"
	OutcomeNoLongerAvailable Outcome = "NO_LONGER_AVAILABLE"
	OutcomeInvalidOrExpired  Outcome = "INVALID_OR_EXPIRED"
	OutcomeTermsRequired     Outcome = "TERMS_REQUIRED"
)

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

type RespondInput struct {
	Token     string
	Action    string
	TermsAck  bool
	OriginIP  string
	UserAgent string
}

type RespondResult struct {
	Outcome Outcome
	Message string
}

// ResponseResolver turns a driver's click into exactly one outcome. Accepts
// race each other inside a single transaction; losing is final.
type ResponseResolver struct {
	jobs        repositories.JobRepository
	invites     repositories.InviteRepository
	assignments repositories.AssignmentRepository
	manager     *AssignmentManager
	clock       utils.Clock
}

func NewResponseResolver(
	jobs repositories.JobRepository,
	invites repositories.InviteRepository,
	assignments repositories.AssignmentRepository,
	manager *AssignmentManager,
	clock utils.Clock,
) *ResponseResolver {
	return &ResponseResolver{
		jobs:        jobs,
		invites:     invites,
		assignments: assignments,
		manager:     manager,
		clock:       clock,
	}
}

func (r *ResponseResolver) Respond(ctx context.Context, in RespondInput) (*RespondResult, error) {
	var (
		res *RespondResult
		err error
	)
	switch in.Action {
	case ActionAccept:
		res, err = r.accept(ctx, in)
	case ActionDecline:
		res, err = r.decline(ctx, in)
	default:
		return nil, &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       internal_utils.ErrCodeInvalidAction,
			Message:    constants.MsgInvalidAction,
			Err:        internal_utils.ErrInvalidAction,
		}
	}
	if err != nil {
		return nil, err
	}
	metrics.Responses.WithLabelValues(in.Action, string(res.Outcome)).Inc()
	return res, nil
}

func (r *ResponseResolver) accept(ctx context.Context, in RespondInput) (*RespondResult, error) {
	if !wellFormedToken(in.Token) {
		return unavailable(OutcomeInvalidOrExpired), nil
	}
	hash := utils.HashToken(in.Token)

	// Advisory read: decides the terms prompt only. The bind below re-checks
	// everything under lock.
	inv, err := r.invites.GetByTokenHash(ctx, hash)
	if err != nil {
		return nil, internalErr("Failed to look up invite", err)
	}
	if inv == nil {
		return unavailable(OutcomeInvalidOrExpired), nil
	}
	job, err := r.jobs.GetByID(ctx, inv.JobID)
	if err != nil {
		return nil, internalErr("Failed to look up job", err)
	}
	now := r.clock.Now()
	if job != nil && job.BillingModel.RequiresTermsAck() && !in.TermsAck {
		switch {
		case !inv.IsLiveAt(now):
			return unavailable(outcomeForDeadInvite(inv, now)), nil
		case job.Status != models.JobStatusBroadcast:
			return unavailable(OutcomeNoLongerAvailable), nil
		}
		utils.Logger.WithError(internal_utils.ErrTermsNotAcknowledged).
			WithField("invite_id", inv.ID).Info("Accept held for terms")
		return &RespondResult{Outcome: OutcomeTermsRequired, Message: constants.MsgTermsRequired}, nil
	}

	bound, err := r.assignments.BindAcceptanceAtomic(ctx, repositories.BindAcceptanceParams{
		TokenHash:         hash,
		Now:               now,
		TermsAcknowledged: in.TermsAck,
		OriginIP:          in.OriginIP,
		UserAgent:         in.UserAgent,
	})
	if err != nil {
		if outcome, ok := outcomeForMiss(err); ok {
			utils.Logger.WithFields(logrus.Fields{
				"invite_id": inv.ID,
				"job_id":    inv.JobID,
				"outcome":   outcome,
			}).Info("Accept did not bind")
			return unavailable(outcome), nil
		}
		return nil, internalErr("Failed to accept invite", err)
	}

	utils.Logger.WithFields(logrus.Fields{
		"job_id":        bound.Job.ID,
		"driver_id":     bound.Assignment.DriverID,
		"invite_id":     bound.Invite.ID,
		"assignment_id": bound.Assignment.ID,
		"superseded":    bound.SupersededInvites,
	}).Info("Job assigned")

	r.manager.OnAssigned(ctx, bound)
	return &RespondResult{Outcome: OutcomeBound, Message: constants.MsgBound}, nil
}

func (r *ResponseResolver) decline(ctx context.Context, in RespondInput) (*RespondResult, error) {
	if !wellFormedToken(in.Token) {
		return unavailable(OutcomeInvalidOrExpired), nil
	}
	inv, err := r.invites.DeclineAtomic(ctx, utils.HashToken(in.Token), r.clock.Now())
	if err != nil {
		if outcome, ok := outcomeForMiss(err); ok {
			return unavailable(outcome), nil
		}
		return nil, internalErr("Failed to decline invite", err)
	}
	utils.Logger.WithFields(logrus.Fields{
		"job_id":    inv.JobID,
		"driver_id": inv.DriverID,
		"invite_id": inv.ID,
	}).Info("Invite declined")
	return &RespondResult{Outcome: OutcomeDeclined, Message: constants.MsgDeclined}, nil
}

// outcomeForMiss maps a failed conditional update to a public outcome.
// Anything not listed is an infrastructure error.
func outcomeForMiss(err error) (Outcome, bool) {
	switch {
	case errors.Is(err, repositories.ErrInviteNotFound), errors.Is(err, repositories.ErrInviteExpired):
		return OutcomeInvalidOrExpired, true
	case errors.Is(err, utils.ErrTransitionConflict):
		return OutcomeNoLongerAvailable, true
	}
	return "", false
}

func outcomeForDeadInvite(inv *models.Invite, now time.Time) Outcome {
	if (inv.Status == models.InviteStatusPending || inv.Status == models.InviteStatusExpired) && inv.IsExpiredAt(now) {
		return OutcomeInvalidOrExpired
	}
	return OutcomeNoLongerAvailable
}

func unavailable(o Outcome) *RespondResult {
	return &RespondResult{Outcome: o, Message: constants.MsgUnavailable}
}

// Raw tokens are unpadded base64url of a fixed byte count.
var inviteTokenLen = base64.RawURLEncoding.EncodedLen(utils.InviteTokenBytes)

func wellFormedToken(token string) bool {
	if len(token) != inviteTokenLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}
