// go-repositories/invite_repository.go

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type InviteRepository interface {
	// CreateIfLive inserts the invite only while its job is BROADCAST and the
	// (job, driver) pair has no PENDING invite. Returns false when skipped.
	CreateIfLive(ctx context.Context, inv *models.Invite) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invite, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Invite, error)

	// DeclineAtomic moves a live invite to DECLINED. It never touches the job
	// or sibling invites.
	DeclineAtomic(ctx context.Context, tokenHash string, now time.Time) (*models.Invite, error)
	// ExpireByID retires a single pending invite, e.g. when its driver was
	// blocked between issuance and send.
	ExpireByID(ctx context.Context, id uuid.UUID) (bool, error)
	// ExpireStale flips every PENDING invite whose window has closed.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	// ListExhaustedBroadcastJobs returns BROADCAST jobs with no PENDING invite left.
	ListExhaustedBroadcastJobs(ctx context.Context) ([]uuid.UUID, error)
}

type inviteRepo struct {
	db DB
}

func NewInviteRepository(db DB) InviteRepository {
	return &inviteRepo{db: db}
}

func (r *inviteRepo) CreateIfLive(ctx context.Context, inv *models.Invite) (bool, error) {
	// FOR SHARE waits on a concurrent cancel's row lock and then re-checks
	// the status, so no invite can land on a job that was just cancelled.
	tag, err := r.db.Exec(ctx, `
        INSERT INTO invites (
            id, job_id, driver_id, token_hash, status, issued_at, expires_at
        )
        SELECT $1, j.id, $3, $4, 'PENDING', $5, $6
        FROM jobs j
        WHERE j.id=$2 AND j.status='BROADCAST'
        FOR SHARE
        ON CONFLICT (job_id, driver_id) WHERE status='PENDING' DO NOTHING
    `, inv.ID, inv.JobID, inv.DriverID, inv.TokenHash, inv.IssuedAt, inv.ExpiresAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	inv.Status = models.InviteStatusPending
	return true, nil
}

func (r *inviteRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	return scanInvite(r.db.QueryRow(ctx, baseSelectInvite()+" WHERE id=$1", id))
}

func (r *inviteRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invite, error) {
	return scanInvite(r.db.QueryRow(ctx, baseSelectInvite()+" WHERE token_hash=$1", tokenHash))
}

func (r *inviteRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Invite, error) {
	rows, err := r.db.Query(ctx, baseSelectInvite()+" WHERE job_id=$1 ORDER BY issued_at, id", jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *inviteRepo) DeclineAtomic(ctx context.Context, tokenHash string, now time.Time) (*models.Invite, error) {
	row := r.db.QueryRow(ctx, `
        UPDATE invites
        SET status='DECLINED', responded_at=$2
        WHERE token_hash=$1 AND status='PENDING' AND expires_at > $2
        RETURNING `+inviteColumns, tokenHash, now)
	inv, err := scanInvite(row)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		return inv, nil
	}
	current, err := r.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	return current, classifyInviteMiss(current, now)
}

func (r *inviteRepo) ExpireByID(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE invites SET status='EXPIRED' WHERE id=$1 AND status='PENDING'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *inviteRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE invites SET status='EXPIRED'
        WHERE status='PENDING' AND expires_at <= $1
    `, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *inviteRepo) ListExhaustedBroadcastJobs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
        SELECT j.id FROM jobs j
        WHERE j.status='BROADCAST'
          AND NOT EXISTS (
              SELECT 1 FROM invites i WHERE i.job_id=j.id AND i.status='PENDING'
          )
        ORDER BY j.updated_at
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// classifyInviteMiss explains why a conditional invite update matched no row.
func classifyInviteMiss(current *models.Invite, now time.Time) error {
	switch {
	case current == nil:
		return ErrInviteNotFound
	case (current.Status == models.InviteStatusPending || current.Status == models.InviteStatusExpired) &&
		current.IsExpiredAt(now):
		// Still pending, or retired by the sweep, after its window closed.
		return ErrInviteExpired
	default:
		return fmt.Errorf("%w: invite %s is %s", utils.ErrTransitionConflict, current.ID, current.Status)
	}
}

const inviteColumns = `id, job_id, driver_id, token_hash, status, issued_at, expires_at, responded_at`

func baseSelectInvite() string {
	return `SELECT ` + inviteColumns + ` FROM invites`
}

func scanInvite(row pgx.Row) (*models.Invite, error) {
	var inv models.Invite
	err := row.Scan(
		&inv.ID, &inv.JobID, &inv.DriverID, &inv.TokenHash, &inv.Status,
		&inv.IssuedAt, &inv.ExpiresAt, &inv.RespondedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}
