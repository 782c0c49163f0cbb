package testhelpers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"testing"

	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-testhelpers/memstore"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"
)

// Repos bundles every repository the dispatch workflow touches, backed either
// by Postgres or by the in-memory store.
type Repos struct {
	Jobs        repositories.JobRepository
	Drivers     repositories.DriverRepository
	Invites     repositories.InviteRepository
	Assignments repositories.AssignmentRepository
	Audits      repositories.AcceptanceAuditRepository
	NoShows     repositories.NoShowRepository
	DeliveryLog repositories.DeliveryLogRepository
	AdminLogs   repositories.AdminAuditLogRepository
}

// NewPostgresRepos wires the production repositories onto a pool.
func NewPostgresRepos(db repositories.DB) Repos {
	return Repos{
		Jobs:        repositories.NewJobRepository(db),
		Drivers:     repositories.NewDriverRepository(db),
		Invites:     repositories.NewInviteRepository(db),
		Assignments: repositories.NewAssignmentRepository(db),
		Audits:      repositories.NewAcceptanceAuditRepository(db),
		NoShows:     repositories.NewNoShowRepository(db),
		DeliveryLog: repositories.NewDeliveryLogRepository(db),
		AdminLogs:   repositories.NewAdminAuditLogRepository(db),
	}
}

// NewMemRepos wires the in-memory store.
func NewMemRepos(s *memstore.Store) Repos {
	return Repos{
		Jobs:        s.Jobs(),
		Drivers:     s.Drivers(),
		Invites:     s.Invites(),
		Assignments: s.Assignments(),
		Audits:      s.Audits(),
		NoShows:     s.NoShows(),
		DeliveryLog: s.DeliveryLog(),
		AdminLogs:   s.AdminAuditLogs(),
	}
}

// TestHelper encapsulates all necessary components for running tests across services.
type TestHelper struct {
	T          *testing.T
	Ctx        context.Context
	PrivateKey *rsa.PrivateKey
	Clock      *FakeClock
	Repos

	// Set only for Postgres-backed helpers.
	DB *pgxpool.Pool
	// Set only for in-memory helpers.
	Mem *memstore.Store
}

func newBase(t *testing.T) *TestHelper {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "Failed to generate test RSA key")
	return &TestHelper{
		T:          t,
		Ctx:        context.Background(),
		PrivateKey: key,
		Clock:      NewFakeClock(DefaultTestNow),
	}
}

// NewMemTestHelper is the default for unit tests: no network, no database.
func NewMemTestHelper(t *testing.T) *TestHelper {
	h := newBase(t)
	h.Mem = memstore.New()
	h.Mem.Now = h.Clock.Now
	h.Repos = NewMemRepos(h.Mem)
	return h
}

// NewTestHelper connects to DATABASE_URL, applies migrations and wires the
// Postgres repositories. The test is skipped when DATABASE_URL is unset.
func NewTestHelper(t *testing.T) *TestHelper {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres-backed test")
	}
	h := newBase(t)

	pool, err := pgxpool.Connect(h.Ctx, dbURL)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	require.NoError(t, repositories.RunMigrations(h.Ctx, pool), "Failed to run migrations")

	h.DB = pool
	h.Repos = NewPostgresRepos(pool)
	return h
}
