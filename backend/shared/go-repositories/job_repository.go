// go-repositories/job_repository.go

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// CancelResult summarises the cascade performed by CancelAtomic.
type CancelResult struct {
	Job                 *models.Job
	PreviousStatus      models.JobStatusType
	ExpiredInvites      int64
	CancelledAssignment bool
}

type JobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, status *models.JobStatusType, limit, offset int) ([]*models.Job, error)
	UpdateIfVersion(ctx context.Context, j *models.Job, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Job) error) error

	// TransitionAtomic moves the job from `from` to `to` in one conditional
	// statement. ErrTransitionConflict if the row is no longer in `from`.
	TransitionAtomic(ctx context.Context, id uuid.UUID, from, to models.JobStatusType) (*models.Job, error)
	CancelAtomic(ctx context.Context, id uuid.UUID, now time.Time) (*CancelResult, error)
}

type jobRepo struct {
	*BaseVersionedRepo[*models.Job]
	db DB
}

func NewJobRepository(db DB) JobRepository {
	r := &jobRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectJob()+" WHERE id=$1", scanJob)
	return r
}

func (r *jobRepo) Create(ctx context.Context, j *models.Job) error {
	row := r.db.QueryRow(ctx, `
        INSERT INTO jobs (
            id, status,
            customer_name, customer_email, customer_phone,
            street, city, postal_code, country,
            vehicle_type, window_start, window_end, requirements,
            billing_model, default_rate_type, default_rate_cents
        ) VALUES (
            $1,$2,
            $3,$4,$5,
            $6,$7,$8,$9,
            $10,$11,$12,$13,
            $14,$15,$16
        )
        RETURNING row_version, created_at, updated_at
    `,
		j.ID, j.Status,
		j.CustomerName, j.CustomerEmail, j.CustomerPhone,
		j.Street, j.City, j.PostalCode, j.Country,
		j.VehicleType, j.WindowStart, j.WindowEnd, j.Requirements,
		j.BillingModel, j.DefaultRateType, j.DefaultRateCents,
	)
	return row.Scan(&j.RowVersion, &j.CreatedAt, &j.UpdatedAt)
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *jobRepo) List(ctx context.Context, status *models.JobStatusType, limit, offset int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = r.db.Query(ctx,
			baseSelectJob()+" WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			*status, limit, offset)
	} else {
		rows, err = r.db.Query(ctx,
			baseSelectJob()+" ORDER BY created_at DESC LIMIT $1 OFFSET $2",
			limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *jobRepo) UpdateIfVersion(ctx context.Context, j *models.Job, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE jobs SET
            customer_name=$1, customer_email=$2, customer_phone=$3,
            street=$4, city=$5, postal_code=$6, country=$7,
            vehicle_type=$8, window_start=$9, window_end=$10, requirements=$11,
            billing_model=$12, default_rate_type=$13, default_rate_cents=$14,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$15 AND row_version=$16
    `,
		j.CustomerName, j.CustomerEmail, j.CustomerPhone,
		j.Street, j.City, j.PostalCode, j.Country,
		j.VehicleType, j.WindowStart, j.WindowEnd, j.Requirements,
		j.BillingModel, j.DefaultRateType, j.DefaultRateCents,
		j.ID, expected,
	)
}

func (r *jobRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Job) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *jobRepo) TransitionAtomic(
	ctx context.Context,
	id uuid.UUID,
	from, to models.JobStatusType,
) (*models.Job, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("illegal job transition %s -> %s", from, to)
	}
	row := r.db.QueryRow(ctx, `
        UPDATE jobs
        SET status=$3, row_version=row_version+1, updated_at=NOW()
        WHERE id=$1 AND status=$2
        RETURNING `+jobColumns, id, from, to)
	j, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	if j != nil {
		return j, nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pgx.ErrNoRows
	}
	return current, fmt.Errorf("%w: job %s is %s, expected %s",
		utils.ErrTransitionConflict, id, current.Status, from)
}

// CancelAtomic locks the job row first, the same order the accept path uses,
// so a cancel and an accept on one job serialize instead of deadlocking.
func (r *jobRepo) CancelAtomic(ctx context.Context, id uuid.UUID, now time.Time) (res *CancelResult, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer finishTx(ctx, tx, &err)

	j, err := scanJob(tx.QueryRow(ctx, baseSelectJob()+" WHERE id=$1 FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if j == nil {
		err = pgx.ErrNoRows
		return nil, err
	}
	if !j.Status.IsCancellable() {
		err = fmt.Errorf("%w: job %s is %s and cannot be cancelled",
			utils.ErrTransitionConflict, id, j.Status)
		return &CancelResult{Job: j, PreviousStatus: j.Status}, err
	}
	res = &CancelResult{PreviousStatus: j.Status}

	updated, err := scanJob(tx.QueryRow(ctx, `
        UPDATE jobs
        SET status='CANCELLED', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1
        RETURNING `+jobColumns, id))
	if err != nil {
		return nil, err
	}
	res.Job = updated

	tag, err := tx.Exec(ctx, `
        UPDATE invites
        SET status='EXPIRED'
        WHERE job_id=$1 AND status='PENDING'
    `, id)
	if err != nil {
		return nil, err
	}
	res.ExpiredInvites = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `
        UPDATE assignments
        SET status='CANCELLED', row_version=row_version+1, updated_at=$2
        WHERE job_id=$1 AND status<>'CANCELLED'
    `, id, now)
	if err != nil {
		return nil, err
	}
	res.CancelledAssignment = tag.RowsAffected() > 0
	return res, nil
}

const jobColumns = `
    id, status,
    customer_name, customer_email, customer_phone,
    street, city, postal_code, country,
    vehicle_type, window_start, window_end, requirements,
    billing_model, default_rate_type, default_rate_cents,
    row_version, created_at, updated_at
`

func baseSelectJob() string {
	return `SELECT ` + jobColumns + ` FROM jobs`
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(
		&j.ID, &j.Status,
		&j.CustomerName, &j.CustomerEmail, &j.CustomerPhone,
		&j.Street, &j.City, &j.PostalCode, &j.Country,
		&j.VehicleType, &j.WindowStart, &j.WindowEnd, &j.Requirements,
		&j.BillingModel, &j.DefaultRateType, &j.DefaultRateCents,
		&j.RowVersion, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &j, nil
}
