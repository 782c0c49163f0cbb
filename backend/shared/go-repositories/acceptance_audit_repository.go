// go-repositories/acceptance_audit_repository.go

package repositories

import (
	"context"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

// Audits are written only inside BindAcceptanceAtomic; this repository reads them.
type AcceptanceAuditRepository interface {
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.AcceptanceAudit, error)
}

type acceptanceAuditRepo struct {
	db DB
}

func NewAcceptanceAuditRepository(db DB) AcceptanceAuditRepository {
	return &acceptanceAuditRepo{db: db}
}

func (r *acceptanceAuditRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.AcceptanceAudit, error) {
	rows, err := r.db.Query(ctx, baseSelectAudit()+" WHERE job_id=$1 ORDER BY accepted_at", jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AcceptanceAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// insertAuditIdempotent writes the audit row once per (job, driver); a
// repeat returns the row already stored.
func insertAuditIdempotent(ctx context.Context, db DB, a *models.AcceptanceAudit) (*models.AcceptanceAudit, error) {
	inserted, err := scanAudit(db.QueryRow(ctx, `
        INSERT INTO acceptance_audits (
            id, job_id, driver_id, invite_id, billing_model,
            terms_acknowledged, origin_ip, user_agent, accepted_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (job_id, driver_id) DO NOTHING
        RETURNING `+auditColumns,
		a.ID, a.JobID, a.DriverID, a.InviteID, a.BillingModel,
		a.TermsAcknowledged, a.OriginIP, a.UserAgent, a.AcceptedAt,
	))
	if err != nil || inserted != nil {
		return inserted, err
	}
	return scanAudit(db.QueryRow(ctx,
		baseSelectAudit()+" WHERE job_id=$1 AND driver_id=$2", a.JobID, a.DriverID))
}

const auditColumns = `
    id, job_id, driver_id, invite_id, billing_model,
    terms_acknowledged, origin_ip, user_agent, accepted_at
`

func baseSelectAudit() string {
	return `SELECT ` + auditColumns + ` FROM acceptance_audits`
}

func scanAudit(row pgx.Row) (*models.AcceptanceAudit, error) {
	var a models.AcceptanceAudit
	err := row.Scan(
		&a.ID, &a.JobID, &a.DriverID, &a.InviteID, &a.BillingModel,
		&a.TermsAcknowledged, &a.OriginIP, &a.UserAgent, &a.AcceptedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
