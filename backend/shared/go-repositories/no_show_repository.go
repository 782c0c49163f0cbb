// go-repositories/no_show_repository.go

package repositories

import (
	"context"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

type NoShowRepository interface {
	// Upsert keeps exactly one record per assignment; a repeat report
	// overwrites tier, fee and timestamps but keeps the original id.
	Upsert(ctx context.Context, rec *models.NoShowRecord) (*models.NoShowRecord, error)
	GetByAssignmentID(ctx context.Context, assignmentID uuid.UUID) (*models.NoShowRecord, error)
}

type noShowRepo struct {
	db DB
}

func NewNoShowRepository(db DB) NoShowRepository {
	return &noShowRepo{db: db}
}

func (r *noShowRepo) Upsert(ctx context.Context, rec *models.NoShowRecord) (*models.NoShowRecord, error) {
	return scanNoShow(r.db.QueryRow(ctx, `
        INSERT INTO no_show_records (
            id, assignment_id, tier, fee_cents, scheduled_start, reported_at, reported_by
        ) VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (assignment_id) DO UPDATE SET
            tier=EXCLUDED.tier,
            fee_cents=EXCLUDED.fee_cents,
            scheduled_start=EXCLUDED.scheduled_start,
            reported_at=EXCLUDED.reported_at,
            reported_by=EXCLUDED.reported_by,
            updated_at=NOW()
        RETURNING `+noShowColumns,
		rec.ID, rec.AssignmentID, rec.Tier, rec.FeeCents, rec.ScheduledStart, rec.ReportedAt, rec.ReportedBy,
	))
}

func (r *noShowRepo) GetByAssignmentID(ctx context.Context, assignmentID uuid.UUID) (*models.NoShowRecord, error) {
	return scanNoShow(r.db.QueryRow(ctx,
		`SELECT `+noShowColumns+` FROM no_show_records WHERE assignment_id=$1`, assignmentID))
}

const noShowColumns = `
    id, assignment_id, tier, fee_cents, scheduled_start, reported_at, reported_by, created_at, updated_at
`

func scanNoShow(row pgx.Row) (*models.NoShowRecord, error) {
	var n models.NoShowRecord
	err := row.Scan(
		&n.ID, &n.AssignmentID, &n.Tier, &n.FeeCents, &n.ScheduledStart,
		&n.ReportedAt, &n.ReportedBy, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
