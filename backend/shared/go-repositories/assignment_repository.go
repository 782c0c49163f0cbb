// go-repositories/assignment_repository.go

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

// BindAcceptanceParams describes one accept attempt.
type BindAcceptanceParams struct {
	TokenHash         string
	Now               time.Time
	TermsAcknowledged bool
	OriginIP          string
	UserAgent         string
}

// BindResult is everything the single winning accept produced.
type BindResult struct {
	Job               *models.Job
	Invite            *models.Invite
	Assignment        *models.Assignment
	Audit             *models.AcceptanceAudit
	SupersededInvites int64
}

type AssignmentRepository interface {
	// BindAcceptanceAtomic consumes the invite and moves its job from
	// BROADCAST to ASSIGNED in one transaction, then records the assignment
	// and audit and supersedes sibling invites. Any failed condition rolls
	// the whole thing back.
	BindAcceptanceAtomic(ctx context.Context, p BindAcceptanceParams) (*BindResult, error)
	// ConfirmAtomic moves an ASSIGNED job to CONFIRMED together with its assignment.
	ConfirmAtomic(ctx context.Context, jobID uuid.UUID) (*models.Job, *models.Assignment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Assignment, error)
	UpdateIfVersion(ctx context.Context, a *models.Assignment, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Assignment) error) error
}

type assignmentRepo struct {
	*BaseVersionedRepo[*models.Assignment]
	db DB
}

func NewAssignmentRepository(db DB) AssignmentRepository {
	r := &assignmentRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectAssignment()+" WHERE id=$1", scanAssignment)
	return r
}

func (r *assignmentRepo) BindAcceptanceAtomic(ctx context.Context, p BindAcceptanceParams) (res *BindResult, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer finishTx(ctx, tx, &err)

	var jobID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT job_id FROM invites WHERE token_hash=$1`, p.TokenHash).Scan(&jobID)
	if err == pgx.ErrNoRows {
		err = ErrInviteNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// Job row first; CancelAtomic uses the same order.
	job, err := scanJob(tx.QueryRow(ctx, baseSelectJob()+" WHERE id=$1 FOR UPDATE", jobID))
	if err != nil {
		return nil, err
	}
	if job == nil {
		err = pgx.ErrNoRows
		return nil, err
	}

	inv, err := scanInvite(tx.QueryRow(ctx, `
        UPDATE invites
        SET status='ACCEPTED', responded_at=$2
        WHERE token_hash=$1 AND status='PENDING' AND expires_at > $2
        RETURNING `+inviteColumns, p.TokenHash, p.Now))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		current, lookupErr := scanInvite(tx.QueryRow(ctx, baseSelectInvite()+" WHERE token_hash=$1", p.TokenHash))
		if lookupErr != nil {
			err = lookupErr
			return nil, err
		}
		err = classifyInviteMiss(current, p.Now)
		return nil, err
	}

	assigned, err := scanJob(tx.QueryRow(ctx, `
        UPDATE jobs
        SET status='ASSIGNED', row_version=row_version+1, updated_at=$2
        WHERE id=$1 AND status='BROADCAST'
        RETURNING `+jobColumns, jobID, p.Now))
	if err != nil {
		return nil, err
	}
	if assigned == nil {
		err = fmt.Errorf("%w: job %s is %s", utils.ErrTransitionConflict, jobID, job.Status)
		return nil, err
	}

	asg := &models.Assignment{
		ID:        uuid.New(),
		JobID:     jobID,
		DriverID:  inv.DriverID,
		InviteID:  inv.ID,
		RateType:  assigned.DefaultRateType,
		RateCents: assigned.DefaultRateCents,
		Status:    models.AssignmentStatusActive,
	}
	err = tx.QueryRow(ctx, `
        INSERT INTO assignments (
            id, job_id, driver_id, invite_id, rate_type, rate_cents, status, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
        RETURNING row_version, created_at, updated_at
    `, asg.ID, asg.JobID, asg.DriverID, asg.InviteID, asg.RateType, asg.RateCents, asg.Status, p.Now,
	).Scan(&asg.RowVersion, &asg.CreatedAt, &asg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	audit, err := insertAuditIdempotent(ctx, tx, &models.AcceptanceAudit{
		ID:                uuid.New(),
		JobID:             jobID,
		DriverID:          inv.DriverID,
		InviteID:          inv.ID,
		BillingModel:      assigned.BillingModel,
		TermsAcknowledged: p.TermsAcknowledged,
		OriginIP:          p.OriginIP,
		UserAgent:         p.UserAgent,
		AcceptedAt:        p.Now,
	})
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
        UPDATE invites
        SET status='SUPERSEDED'
        WHERE job_id=$1 AND status='PENDING' AND id<>$2
    `, jobID, inv.ID)
	if err != nil {
		return nil, err
	}

	return &BindResult{
		Job:               assigned,
		Invite:            inv,
		Assignment:        asg,
		Audit:             audit,
		SupersededInvites: tag.RowsAffected(),
	}, nil
}

func (r *assignmentRepo) ConfirmAtomic(ctx context.Context, jobID uuid.UUID) (job *models.Job, asg *models.Assignment, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer finishTx(ctx, tx, &err)

	current, err := scanJob(tx.QueryRow(ctx, baseSelectJob()+" WHERE id=$1 FOR UPDATE", jobID))
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		err = pgx.ErrNoRows
		return nil, nil, err
	}
	if current.Status != models.JobStatusAssigned {
		err = fmt.Errorf("%w: job %s is %s, expected %s",
			utils.ErrTransitionConflict, jobID, current.Status, models.JobStatusAssigned)
		return current, nil, err
	}

	job, err = scanJob(tx.QueryRow(ctx, `
        UPDATE jobs SET status='CONFIRMED', row_version=row_version+1, updated_at=NOW()
        WHERE id=$1
        RETURNING `+jobColumns, jobID))
	if err != nil {
		return nil, nil, err
	}
	asg, err = scanAssignment(tx.QueryRow(ctx, `
        UPDATE assignments SET status='CONFIRMED', row_version=row_version+1, updated_at=NOW()
        WHERE job_id=$1 AND status='ACTIVE'
        RETURNING `+assignmentColumns, jobID))
	if err != nil {
		return nil, nil, err
	}
	if asg == nil {
		err = fmt.Errorf("assigned job %s has no active assignment", jobID)
		return nil, nil, err
	}
	return job, asg, nil
}

func (r *assignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *assignmentRepo) GetByJobID(ctx context.Context, jobID uuid.UUID) (*models.Assignment, error) {
	return scanAssignment(r.db.QueryRow(ctx, baseSelectAssignment()+" WHERE job_id=$1", jobID))
}

func (r *assignmentRepo) UpdateIfVersion(ctx context.Context, a *models.Assignment, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE assignments SET
            rate_type=$1, rate_cents=$2, admin_note=$3,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$4 AND row_version=$5
    `, a.RateType, a.RateCents, a.AdminNote, a.ID, expected)
}

func (r *assignmentRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Assignment) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

const assignmentColumns = `
    id, job_id, driver_id, invite_id, rate_type, rate_cents, status, admin_note,
    row_version, created_at, updated_at
`

func baseSelectAssignment() string {
	return `SELECT ` + assignmentColumns + ` FROM assignments`
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(
		&a.ID, &a.JobID, &a.DriverID, &a.InviteID, &a.RateType, &a.RateCents, &a.Status, &a.AdminNote,
		&a.RowVersion, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
