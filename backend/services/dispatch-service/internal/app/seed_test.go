package app

import (
	"testing"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemoDrivers_Idempotent(t *testing.T) {
	h := testhelpers.NewMemTestHelper(t)

	n, err := SeedDemoDrivers(h.Ctx, h.Drivers)
	require.NoError(t, err)
	assert.Equal(t, len(demoDrivers), n)

	n, err = SeedDemoDrivers(h.Ctx, h.Drivers)
	require.NoError(t, err)
	assert.Zero(t, n)

	eligible, err := h.Drivers.ListEligible(h.Ctx)
	require.NoError(t, err)
	for _, d := range eligible {
		assert.Contains(t, []models.DriverStatusType{models.DriverStatusApproved, models.DriverStatusActive}, d.Status)
	}
	assert.Len(t, eligible, 3)
}
