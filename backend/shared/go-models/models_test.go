package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to JobStatusType }{
		{JobStatusOpen, JobStatusBroadcast},
		{JobStatusBroadcast, JobStatusAssigned},
		{JobStatusAssigned, JobStatusConfirmed},
		{JobStatusConfirmed, JobStatusCompleted},
		{JobStatusOpen, JobStatusCancelled},
		{JobStatusBroadcast, JobStatusCancelled},
		{JobStatusAssigned, JobStatusCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, tr.from.CanTransitionTo(tr.to), "%s -> %s", tr.from, tr.to)
	}

	forbidden := []struct{ from, to JobStatusType }{
		{JobStatusOpen, JobStatusAssigned},
		{JobStatusBroadcast, JobStatusOpen},
		{JobStatusAssigned, JobStatusBroadcast},
		{JobStatusConfirmed, JobStatusCancelled},
		{JobStatusCompleted, JobStatusCancelled},
		{JobStatusCancelled, JobStatusOpen},
		{JobStatusCancelled, JobStatusBroadcast},
	}
	for _, tr := range forbidden {
		assert.False(t, tr.from.CanTransitionTo(tr.to), "%s -> %s", tr.from, tr.to)
	}

	for _, s := range CancellableJobStatuses() {
		assert.True(t, s.IsCancellable())
	}
	assert.False(t, JobStatusConfirmed.IsCancellable())
}

func TestDriverEligibility(t *testing.T) {
	assert.True(t, DriverStatusApproved.IsEligible())
	assert.True(t, DriverStatusActive.IsEligible())
	assert.False(t, DriverStatusPending.IsEligible())
	assert.False(t, DriverStatusBlocked.IsEligible())

	var nilDriver *Driver
	assert.False(t, nilDriver.IsEligible())
}

func TestBillingModelTermsAck(t *testing.T) {
	assert.False(t, BillingModelHourly.RequiresTermsAck())
	assert.True(t, BillingModelFlatRate.RequiresTermsAck())
	assert.True(t, BillingModelPlacement.RequiresTermsAck())
}

func TestInviteExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	inv := &Invite{Status: InviteStatusPending, IssuedAt: issued, ExpiresAt: issued.Add(InviteTTL)}

	assert.True(t, inv.IsLiveAt(issued.Add(InviteTTL-time.Second)))
	assert.False(t, inv.IsLiveAt(issued.Add(InviteTTL)))
	assert.True(t, inv.IsExpiredAt(issued.Add(InviteTTL+time.Second)))

	inv.Status = InviteStatusDeclined
	assert.False(t, inv.IsLiveAt(issued))
}
