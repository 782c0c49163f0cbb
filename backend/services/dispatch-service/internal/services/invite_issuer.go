// backend/services/dispatch-service/internal/services/invite_issuer.go

package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/metrics"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/routes"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IssuedInvite pairs a freshly stored invite with its raw token. The token
// only lives in memory long enough to build the driver's links.
type IssuedInvite struct {
	Invite *models.Invite
	Driver *models.Driver
	Token  string
}

type IssueResult struct {
	Issued []IssuedInvite
	// NotIssued drivers already hold a live invite, or the job left
	// BROADCAST while we were issuing.
	NotIssued []*models.Driver
	Failed    []*models.Driver
}

type InviteIssuer struct {
	invites repositories.InviteRepository
	clock   utils.Clock
	appURL  string
}

func NewInviteIssuer(invites repositories.InviteRepository, clock utils.Clock, appURL string) *InviteIssuer {
	return &InviteIssuer{
		invites: invites,
		clock:   clock,
		appURL:  strings.TrimRight(appURL, "/"),
	}
}

// Issue mints one single-use token per driver. A storage failure for one
// driver does not stop the others.
func (i *InviteIssuer) Issue(ctx context.Context, jobID uuid.UUID, drivers []*models.Driver) (*IssueResult, error) {
	res := &IssueResult{}
	for _, d := range drivers {
		token, err := utils.RandomURLToken(utils.InviteTokenBytes)
		if err != nil {
			return res, fmt.Errorf("generate invite token: %w", err)
		}
		now := i.clock.Now()
		inv := &models.Invite{
			ID:        uuid.New(),
			JobID:     jobID,
			DriverID:  d.ID,
			TokenHash: utils.HashToken(token),
			IssuedAt:  now,
			ExpiresAt: now.Add(models.InviteTTL),
		}

		created, err := i.invites.CreateIfLive(ctx, inv)
		if err != nil {
			utils.Logger.WithError(err).WithFields(logrus.Fields{
				"job_id":    jobID,
				"driver_id": d.ID,
			}).Error("Failed to store invite")
			res.Failed = append(res.Failed, d)
			continue
		}
		if !created {
			res.NotIssued = append(res.NotIssued, d)
			continue
		}
		metrics.InvitesIssued.Inc()
		res.Issued = append(res.Issued, IssuedInvite{Invite: inv, Driver: d, Token: token})
	}
	return res, nil
}

// RespondURL builds the public link a driver clicks to accept or decline.
func (i *InviteIssuer) RespondURL(action, token string) string {
	q := url.Values{}
	q.Set("action", action)
	q.Set("token", token)
	return i.appURL + routes.InvitesRespond + "?" + q.Encode()
}
