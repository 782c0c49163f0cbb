package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
)

// Helper to check for unique violation error (PostgreSQL specific code)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type seedDriver struct {
	id          string
	first, last string
	email       string
	phone       string
	vehicle     string
	status      models.DriverStatusType
}

// Fixed ids so reseeding is a no-op. One driver per status keeps the
// eligibility filter visible in a demo broadcast.
var demoDrivers = []seedDriver{
	{"44444444-4444-4444-4444-444444444401", "Ada", "Active", "ada.active@drivers.example.com", "+15550100001", "VAN", models.DriverStatusActive},
	{"44444444-4444-4444-4444-444444444402", "Ben", "Approved", "ben.approved@drivers.example.com", "+15550100002", "TRUCK", models.DriverStatusApproved},
	{"44444444-4444-4444-4444-444444444403", "Cleo", "Active", "cleo.active@drivers.example.com", "+15550100003", "VAN", models.DriverStatusActive},
	{"44444444-4444-4444-4444-444444444404", "Dev", "Pending", "dev.pending@drivers.example.com", "+15550100004", "CAR", models.DriverStatusPending},
	{"44444444-4444-4444-4444-444444444405", "Eli", "Blocked", "eli.blocked@drivers.example.com", "+15550100005", "VAN", models.DriverStatusBlocked},
}

/*
SeedDemoDrivers inserts a small fixed driver roster. Existing rows are left
untouched, so it is safe on every boot while the seed flag is on.
*/
func SeedDemoDrivers(ctx context.Context, drivers repositories.DriverRepository) (int, error) {
	created := 0
	for _, sd := range demoDrivers {
		id := uuid.MustParse(sd.id)
		existing, err := drivers.GetByID(ctx, id)
		if err != nil {
			return created, fmt.Errorf("check seed driver %s: %w", sd.email, err)
		}
		if existing != nil {
			continue
		}
		err = drivers.Create(ctx, &models.Driver{
			ID:          id,
			Status:      sd.status,
			FirstName:   sd.first,
			LastName:    sd.last,
			Email:       sd.email,
			PhoneNumber: sd.phone,
			VehicleType: sd.vehicle,
		})
		if err != nil {
			if isUniqueViolation(err) {
				utils.Logger.WithField("email", sd.email).Info("seed driver email already taken; skipping")
				continue
			}
			return created, fmt.Errorf("create seed driver %s: %w", sd.email, err)
		}
		created++
	}
	if created == 0 {
		utils.Logger.Info("dispatch-service: seed drivers already present; skipping seeding")
	}
	return created, nil
}
