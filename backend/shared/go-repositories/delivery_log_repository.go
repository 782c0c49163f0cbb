// go-repositories/delivery_log_repository.go

package repositories

import (
	"context"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/google/uuid"
)

type DeliveryLogRepository interface {
	Append(ctx context.Context, e *models.DeliveryLogEntry) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.DeliveryLogEntry, error)
}

type deliveryLogRepo struct {
	db DB
}

func NewDeliveryLogRepository(db DB) DeliveryLogRepository {
	return &deliveryLogRepo{db: db}
}

func (r *deliveryLogRepo) Append(ctx context.Context, e *models.DeliveryLogEntry) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO delivery_log (
            id, job_id, driver_id, recipient, channel, template_id, status, error
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at
    `, e.ID, e.JobID, e.DriverID, e.Recipient, e.Channel, e.TemplateID, e.Status, e.Error,
	).Scan(&e.CreatedAt)
}

func (r *deliveryLogRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.DeliveryLogEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, job_id, driver_id, recipient, channel, template_id, status, error, created_at
        FROM delivery_log
        WHERE job_id=$1
        ORDER BY created_at, id
    `, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.DeliveryLogEntry
	for rows.Next() {
		var e models.DeliveryLogEntry
		if err := rows.Scan(
			&e.ID, &e.JobID, &e.DriverID, &e.Recipient, &e.Channel,
			&e.TemplateID, &e.Status, &e.Error, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
