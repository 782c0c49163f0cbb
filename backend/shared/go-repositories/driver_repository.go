// go-repositories/driver_repository.go

package repositories

import (
	"context"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

type DriverRepository interface {
	Create(ctx context.Context, d *models.Driver) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	GetByEmail(ctx context.Context, email string) (*models.Driver, error)
	List(ctx context.Context) ([]*models.Driver, error)
	// ListEligible returns APPROVED and ACTIVE drivers as of this read.
	ListEligible(ctx context.Context) ([]*models.Driver, error)
	UpdateIfVersion(ctx context.Context, d *models.Driver, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Driver) error) error
}

type driverRepo struct {
	*BaseVersionedRepo[*models.Driver]
	db DB
}

func NewDriverRepository(db DB) DriverRepository {
	r := &driverRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectDriver()+" WHERE id=$1", scanDriver)
	return r
}

func (r *driverRepo) Create(ctx context.Context, d *models.Driver) error {
	row := r.db.QueryRow(ctx, `
        INSERT INTO drivers (
            id, status, first_name, last_name, email, phone_number, vehicle_type
        ) VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING row_version, created_at, updated_at
    `, d.ID, d.Status, d.FirstName, d.LastName, d.Email, d.PhoneNumber, d.VehicleType)
	return row.Scan(&d.RowVersion, &d.CreatedAt, &d.UpdatedAt)
}

func (r *driverRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *driverRepo) GetByEmail(ctx context.Context, email string) (*models.Driver, error) {
	row := r.db.QueryRow(ctx, baseSelectDriver()+" WHERE lower(email)=lower($1)", email)
	return scanDriver(row)
}

func (r *driverRepo) List(ctx context.Context) ([]*models.Driver, error) {
	return r.query(ctx, baseSelectDriver()+" ORDER BY created_at")
}

func (r *driverRepo) ListEligible(ctx context.Context) ([]*models.Driver, error) {
	return r.query(ctx, baseSelectDriver()+" WHERE status IN ('APPROVED','ACTIVE') ORDER BY created_at")
}

func (r *driverRepo) UpdateIfVersion(ctx context.Context, d *models.Driver, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE drivers SET
            status=$1, first_name=$2, last_name=$3, email=$4,
            phone_number=$5, vehicle_type=$6,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$7 AND row_version=$8
    `, d.Status, d.FirstName, d.LastName, d.Email, d.PhoneNumber, d.VehicleType, d.ID, expected)
}

func (r *driverRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Driver) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *driverRepo) query(ctx context.Context, sql string, args ...any) ([]*models.Driver, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func baseSelectDriver() string {
	return `
        SELECT id, status, first_name, last_name, email, phone_number, vehicle_type,
               row_version, created_at, updated_at
        FROM drivers
    `
}

func scanDriver(row pgx.Row) (*models.Driver, error) {
	var d models.Driver
	err := row.Scan(
		&d.ID, &d.Status, &d.FirstName, &d.LastName, &d.Email, &d.PhoneNumber, &d.VehicleType,
		&d.RowVersion, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
