// backend/shared/go-testhelpers/data.go

package testhelpers

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var uniqueSeq atomic.Int64

// UniquePhone generates a unique phone number for testing.
func UniquePhone() string {
	return fmt.Sprintf("+1555%07d", (time.Now().UnixNano()+uniqueSeq.Add(1))%1e7)
}

// UniqueEmail generates a unique email for testing.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@drivers.example.com", prefix, time.Now().UnixNano(), uniqueSeq.Add(1))
}

// CreateTestDriver creates and persists a driver in the given status.
func (h *TestHelper) CreateTestDriver(status models.DriverStatusType) *models.Driver {
	d := &models.Driver{
		ID:          uuid.New(),
		Status:      status,
		FirstName:   "Test",
		LastName:    "Driver",
		Email:       UniqueEmail("driver"),
		PhoneNumber: UniquePhone(),
		VehicleType: "VAN",
	}
	require.NoError(h.T, h.Drivers.Create(h.Ctx, d), "Failed to create test driver")
	return d
}

// CreateTestDrivers creates n drivers in the given status.
func (h *TestHelper) CreateTestDrivers(n int, status models.DriverStatusType) []*models.Driver {
	out := make([]*models.Driver, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.CreateTestDriver(status))
	}
	return out
}

// NewTestJob returns an unsaved OPEN job starting 72h from the clock.
func (h *TestHelper) NewTestJob(billing models.BillingModelType) *models.Job {
	start, end := h.TestWindow(72 * time.Hour)
	return &models.Job{
		ID:               uuid.New(),
		Status:           models.JobStatusOpen,
		CustomerName:     "Acme Logistics",
		CustomerEmail:    UniqueEmail("customer"),
		CustomerPhone:    UniquePhone(),
		Street:           "1 Harbour Road",
		City:             "Hamburg",
		PostalCode:       "20457",
		Country:          "DE",
		VehicleType:      "VAN",
		WindowStart:      start,
		WindowEnd:        end,
		Requirements:     "Loading dock access",
		BillingModel:     billing,
		DefaultRateType:  models.RateTypeHourly,
		DefaultRateCents: 3500,
	}
}

// CreateTestJob persists an OPEN job.
func (h *TestHelper) CreateTestJob(billing models.BillingModelType) *models.Job {
	j := h.NewTestJob(billing)
	require.NoError(h.T, h.Jobs.Create(h.Ctx, j), "Failed to create test job")
	return j
}

// CreateBroadcastJob persists a job and moves it straight to BROADCAST,
// bypassing the admin gate. For repository-level tests only.
func (h *TestHelper) CreateBroadcastJob(billing models.BillingModelType) *models.Job {
	j := h.CreateTestJob(billing)
	updated, err := h.Jobs.TransitionAtomic(h.Ctx, j.ID, models.JobStatusOpen, models.JobStatusBroadcast)
	require.NoError(h.T, err)
	return updated
}

// CreateTestInvite persists a pending invite with the given token hash,
// issued at the clock's current time.
func (h *TestHelper) CreateTestInvite(jobID, driverID uuid.UUID, tokenHash string) *models.Invite {
	now := h.Clock.Now()
	inv := &models.Invite{
		ID:        uuid.New(),
		JobID:     jobID,
		DriverID:  driverID,
		TokenHash: tokenHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(models.InviteTTL),
	}
	ok, err := h.Invites.CreateIfLive(h.Ctx, inv)
	require.NoError(h.T, err)
	require.True(h.T, ok, "invite was not created")
	return inv
}
