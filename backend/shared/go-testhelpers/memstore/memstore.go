// Package memstore is an in-memory stand-in for the Postgres repositories.
// A single mutex guards every table, which gives the *Atomic methods the same
// all-or-nothing behaviour the SQL transactions have.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

type Store struct {
	mu sync.Mutex

	jobs        map[uuid.UUID]*models.Job
	drivers     map[uuid.UUID]*models.Driver
	invites     map[uuid.UUID]*models.Invite
	assignments map[uuid.UUID]*models.Assignment
	audits      []*models.AcceptanceAudit
	noShows     map[uuid.UUID]*models.NoShowRecord // keyed by assignment
	deliveries  []*models.DeliveryLogEntry
	adminLogs   []*models.AdminAuditLog

	// Now stamps created_at/updated_at columns.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		jobs:        map[uuid.UUID]*models.Job{},
		drivers:     map[uuid.UUID]*models.Driver{},
		invites:     map[uuid.UUID]*models.Invite{},
		assignments: map[uuid.UUID]*models.Assignment{},
		noShows:     map[uuid.UUID]*models.NoShowRecord{},
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Jobs() repositories.JobRepository { return &jobRepo{s} }
func (s *Store) Drivers() repositories.DriverRepository { return &driverRepo{s} }
func (s *Store) Invites() repositories.InviteRepository { return &inviteRepo{s} }
func (s *Store) Assignments() repositories.AssignmentRepository { return &assignmentRepo{s} }
func (s *Store) Audits() repositories.AcceptanceAuditRepository { return &auditRepo{s} }
func (s *Store) NoShows() repositories.NoShowRepository { return &noShowRepo{s} }
func (s *Store) DeliveryLog() repositories.DeliveryLogRepository { return &deliveryRepo{s} }
func (s *Store) AdminAuditLogs() repositories.AdminAuditLogRepository { return &adminLogRepo{s} }

func tag(n int) pgconn.CommandTag {
	return pgconn.CommandTag(fmt.Sprintf("UPDATE %d", n))
}

func cp[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ---------------------------------------------------------------- jobs

type jobRepo struct{ s *Store }

func (r *jobRepo) Create(_ context.Context, j *models.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.jobs[j.ID]; dup {
		return fmt.Errorf("duplicate job id %s", j.ID)
	}
	now := r.s.Now()
	j.RowVersion, j.CreatedAt, j.UpdatedAt = 1, now, now
	r.s.jobs[j.ID] = cp(j)
	return nil
}

func (r *jobRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cp(r.s.jobs[id]), nil
}

func (r *jobRepo) List(_ context.Context, status *models.JobStatusType, limit, offset int) ([]*models.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Job
	for _, j := range r.s.jobs {
		if status == nil || j.Status == *status {
			out = append(out, cp(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit <= 0 {
		limit = 50
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *jobRepo) UpdateIfVersion(_ context.Context, j *models.Job, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.jobs[j.ID]
	if !ok || cur.RowVersion != expected {
		return tag(0), nil
	}
	next := cp(j)
	next.Status = cur.Status
	next.CreatedAt = cur.CreatedAt
	next.RowVersion = expected + 1
	next.UpdatedAt = r.s.Now()
	r.s.jobs[j.ID] = next
	return tag(1), nil
}

func (r *jobRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Job) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id.String(),
		func(ctx context.Context, id string) (*models.Job, error) {
			return r.GetByID(ctx, uuid.MustParse(id))
		},
		r.UpdateIfVersion, mutate)
}

func (r *jobRepo) TransitionAtomic(_ context.Context, id uuid.UUID, from, to models.JobStatusType) (*models.Job, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("illegal job transition %s -> %s", from, to)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if j.Status != from {
		return cp(j), fmt.Errorf("%w: job %s is %s, expected %s", utils.ErrTransitionConflict, id, j.Status, from)
	}
	j.Status = to
	j.RowVersion++
	j.UpdatedAt = r.s.Now()
	return cp(j), nil
}

func (r *jobRepo) CancelAtomic(_ context.Context, id uuid.UUID, now time.Time) (*repositories.CancelResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if !j.Status.IsCancellable() {
		return &repositories.CancelResult{Job: cp(j), PreviousStatus: j.Status},
			fmt.Errorf("%w: job %s is %s and cannot be cancelled", utils.ErrTransitionConflict, id, j.Status)
	}
	res := &repositories.CancelResult{PreviousStatus: j.Status}
	j.Status = models.JobStatusCancelled
	j.RowVersion++
	j.UpdatedAt = r.s.Now()
	res.Job = cp(j)

	for _, inv := range r.s.invites {
		if inv.JobID == id && inv.Status == models.InviteStatusPending {
			inv.Status = models.InviteStatusExpired
			res.ExpiredInvites++
		}
	}
	for _, a := range r.s.assignments {
		if a.JobID == id && a.Status != models.AssignmentStatusCancelled {
			a.Status = models.AssignmentStatusCancelled
			a.RowVersion++
			a.UpdatedAt = now
			res.CancelledAssignment = true
		}
	}
	return res, nil
}

// ---------------------------------------------------------------- drivers

type driverRepo struct{ s *Store }

func (r *driverRepo) Create(_ context.Context, d *models.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.drivers {
		if strings.EqualFold(existing.Email, d.Email) {
			return fmt.Errorf("duplicate key value violates unique constraint \"drivers_email_key\"")
		}
	}
	now := r.s.Now()
	d.RowVersion, d.CreatedAt, d.UpdatedAt = 1, now, now
	r.s.drivers[d.ID] = cp(d)
	return nil
}

func (r *driverRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cp(r.s.drivers[id]), nil
}

func (r *driverRepo) GetByEmail(_ context.Context, email string) (*models.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drivers {
		if strings.EqualFold(d.Email, email) {
			return cp(d), nil
		}
	}
	return nil, nil
}

func (r *driverRepo) List(_ context.Context) ([]*models.Driver, error) {
	return r.list(func(*models.Driver) bool { return true }), nil
}

func (r *driverRepo) ListEligible(_ context.Context) ([]*models.Driver, error) {
	return r.list((*models.Driver).IsEligible), nil
}

func (r *driverRepo) list(keep func(*models.Driver) bool) []*models.Driver {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Driver
	for _, d := range r.s.drivers {
		if keep(d) {
			out = append(out, cp(d))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].Email < out[b].Email
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

func (r *driverRepo) UpdateIfVersion(_ context.Context, d *models.Driver, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.drivers[d.ID]
	if !ok || cur.RowVersion != expected {
		return tag(0), nil
	}
	next := cp(d)
	next.CreatedAt = cur.CreatedAt
	next.RowVersion = expected + 1
	next.UpdatedAt = r.s.Now()
	r.s.drivers[d.ID] = next
	return tag(1), nil
}

func (r *driverRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Driver) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id.String(),
		func(ctx context.Context, id string) (*models.Driver, error) {
			return r.GetByID(ctx, uuid.MustParse(id))
		},
		r.UpdateIfVersion, mutate)
}

// ---------------------------------------------------------------- invites

type inviteRepo struct{ s *Store }

func (r *inviteRepo) CreateIfLive(_ context.Context, inv *models.Invite) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[inv.JobID]
	if !ok || j.Status != models.JobStatusBroadcast {
		return false, nil
	}
	for _, existing := range r.s.invites {
		if existing.TokenHash == inv.TokenHash {
			return false, fmt.Errorf("duplicate token hash")
		}
		if existing.JobID == inv.JobID && existing.DriverID == inv.DriverID &&
			existing.Status == models.InviteStatusPending {
			return false, nil
		}
	}
	inv.Status = models.InviteStatusPending
	r.s.invites[inv.ID] = cp(inv)
	return true, nil
}

func (r *inviteRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cp(r.s.invites[id]), nil
}

func (r *inviteRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cp(r.s.byTokenHash(tokenHash)), nil
}

func (s *Store) byTokenHash(h string) *models.Invite {
	for _, inv := range s.invites {
		if inv.TokenHash == h {
			return inv
		}
	}
	return nil
}

func (r *inviteRepo) ListByJob(_ context.Context, jobID uuid.UUID) ([]*models.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Invite
	for _, inv := range r.s.invites {
		if inv.JobID == jobID {
			out = append(out, cp(inv))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].IssuedAt.Equal(out[b].IssuedAt) {
			return out[a].ID.String() < out[b].ID.String()
		}
		return out[a].IssuedAt.Before(out[b].IssuedAt)
	})
	return out, nil
}

func (r *inviteRepo) DeclineAtomic(_ context.Context, tokenHash string, now time.Time) (*models.Invite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv := r.s.byTokenHash(tokenHash)
	if inv == nil || inv.Status != models.InviteStatusPending || inv.IsExpiredAt(now) {
		return cp(inv), classifyMiss(inv, now)
	}
	inv.Status = models.InviteStatusDeclined
	inv.RespondedAt = utils.Ptr(now)
	return cp(inv), nil
}

func (r *inviteRepo) ExpireByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invites[id]
	if !ok || inv.Status != models.InviteStatusPending {
		return false, nil
	}
	inv.Status = models.InviteStatusExpired
	return true, nil
}

func (r *inviteRepo) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, inv := range r.s.invites {
		if inv.Status == models.InviteStatusPending && inv.IsExpiredAt(now) {
			inv.Status = models.InviteStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *inviteRepo) ListExhaustedBroadcastJobs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	live := map[uuid.UUID]bool{}
	for _, inv := range r.s.invites {
		if inv.Status == models.InviteStatusPending {
			live[inv.JobID] = true
		}
	}
	var ids []uuid.UUID
	for id, j := range r.s.jobs {
		if j.Status == models.JobStatusBroadcast && !live[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	return ids, nil
}

func classifyMiss(inv *models.Invite, now time.Time) error {
	switch {
	case inv == nil:
		return repositories.ErrInviteNotFound
	case (inv.Status == models.InviteStatusPending || inv.Status == models.InviteStatusExpired) &&
		inv.IsExpiredAt(now):
		return repositories.ErrInviteExpired
	default:
		return fmt.Errorf("%w: invite %s is %s", utils.ErrTransitionConflict, inv.ID, inv.Status)
	}
}

// ---------------------------------------------------------------- assignments

type assignmentRepo struct{ s *Store }

func (r *assignmentRepo) BindAcceptanceAtomic(_ context.Context, p repositories.BindAcceptanceParams) (*repositories.BindResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv := r.s.byTokenHash(p.TokenHash)
	if inv == nil || inv.Status != models.InviteStatusPending || inv.IsExpiredAt(p.Now) {
		return nil, classifyMiss(inv, p.Now)
	}
	job, ok := r.s.jobs[inv.JobID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if job.Status != models.JobStatusBroadcast {
		return nil, fmt.Errorf("%w: job %s is %s", utils.ErrTransitionConflict, job.ID, job.Status)
	}
	for _, a := range r.s.assignments {
		if a.JobID == job.ID {
			return nil, fmt.Errorf("duplicate key value violates unique constraint \"assignments_job_id_key\"")
		}
	}

	// All conditions hold; apply every write.
	inv.Status = models.InviteStatusAccepted
	inv.RespondedAt = utils.Ptr(p.Now)
	job.Status = models.JobStatusAssigned
	job.RowVersion++
	job.UpdatedAt = p.Now

	asg := &models.Assignment{
		ID:        uuid.New(),
		JobID:     job.ID,
		DriverID:  inv.DriverID,
		InviteID:  inv.ID,
		RateType:  job.DefaultRateType,
		RateCents: job.DefaultRateCents,
		Status:    models.AssignmentStatusActive,
		CreatedAt: p.Now,
		UpdatedAt: p.Now,
	}
	asg.RowVersion = 1
	r.s.assignments[asg.ID] = asg

	var audit *models.AcceptanceAudit
	for _, a := range r.s.audits {
		if a.JobID == job.ID && a.DriverID == inv.DriverID {
			audit = a
		}
	}
	if audit == nil {
		audit = &models.AcceptanceAudit{
			ID:                uuid.New(),
			JobID:             job.ID,
			DriverID:          inv.DriverID,
			InviteID:          inv.ID,
			BillingModel:      job.BillingModel,
			TermsAcknowledged: p.TermsAcknowledged,
			OriginIP:          p.OriginIP,
			UserAgent:         p.UserAgent,
			AcceptedAt:        p.Now,
		}
		r.s.audits = append(r.s.audits, audit)
	}

	var superseded int64
	for _, sib := range r.s.invites {
		if sib.JobID == job.ID && sib.ID != inv.ID && sib.Status == models.InviteStatusPending {
			sib.Status = models.InviteStatusSuperseded
			superseded++
		}
	}

	return &repositories.BindResult{
		Job:               cp(job),
		Invite:            cp(inv),
		Assignment:        cp(asg),
		Audit:             cp(audit),
		SupersededInvites: superseded,
	}, nil
}

func (r *assignmentRepo) ConfirmAtomic(_ context.Context, jobID uuid.UUID) (*models.Job, *models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[jobID]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	if job.Status != models.JobStatusAssigned {
		return cp(job), nil, fmt.Errorf("%w: job %s is %s, expected %s",
			utils.ErrTransitionConflict, jobID, job.Status, models.JobStatusAssigned)
	}
	var asg *models.Assignment
	for _, a := range r.s.assignments {
		if a.JobID == jobID && a.Status == models.AssignmentStatusActive {
			asg = a
		}
	}
	if asg == nil {
		return nil, nil, fmt.Errorf("assigned job %s has no active assignment", jobID)
	}
	now := r.s.Now()
	job.Status = models.JobStatusConfirmed
	job.RowVersion++
	job.UpdatedAt = now
	asg.Status = models.AssignmentStatusConfirmed
	asg.RowVersion++
	asg.UpdatedAt = now
	return cp(job), cp(asg), nil
}

func (r *assignmentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cp(r.s.assignments[id]), nil
}

func (r *assignmentRepo) GetByJobID(_ context.Context, jobID uuid.UUID) (*models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.JobID == jobID {
			return cp(a), nil
		}
	}
	return nil, nil
}

func (r *assignmentRepo) UpdateIfVersion(_ context.Context, a *models.Assignment, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.assignments[a.ID]
	if !ok || cur.RowVersion != expected {
		return tag(0), nil
	}
	cur.RateType = a.RateType
	cur.RateCents = a.RateCents
	cur.AdminNote = a.AdminNote
	cur.RowVersion = expected + 1
	cur.UpdatedAt = r.s.Now()
	return tag(1), nil
}

func (r *assignmentRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Assignment) error) error {
	return repositories.WithRetry(ctx, repositories.DefaultMaxRetries, id.String(),
		func(ctx context.Context, id string) (*models.Assignment, error) {
			return r.GetByID(ctx, uuid.MustParse(id))
		},
		r.UpdateIfVersion, mutate)
}

// ---------------------------------------------------------------- audits

type auditRepo struct{ s *Store }

func (r *auditRepo) ListByJob(_ context.Context, jobID uuid.UUID) ([]*models.AcceptanceAudit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AcceptanceAudit
	for _, a := range r.s.audits {
		if a.JobID == jobID {
			out = append(out, cp(a))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------- no-shows

type noShowRepo struct{ s *Store }

func (r *noShowRepo) Upsert(_ context.Context, rec *models.NoShowRecord) (*models.NoShowRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.Now()
	if cur, ok := r.s.noShows[rec.AssignmentID]; ok {
		cur.Tier = rec.Tier
		cur.FeeCents = rec.FeeCents
		cur.ScheduledStart = rec.ScheduledStart
		cur.ReportedAt = rec.ReportedAt
		cur.ReportedBy = rec.ReportedBy
		cur.UpdatedAt = now
		return cp(cur), nil
	}
	stored := cp(rec)
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.s.noShows[rec.AssignmentID] = stored
	return cp(stored), nil
}

func (r *noShowRepo) GetByAssignmentID(_ context.Context, assignmentID uuid.UUID) (*models.NoShowRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return cp(r.s.noShows[assignmentID]), nil
}

// ---------------------------------------------------------------- delivery log

type deliveryRepo struct{ s *Store }

func (r *deliveryRepo) Append(_ context.Context, e *models.DeliveryLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.CreatedAt = r.s.Now()
	r.s.deliveries = append(r.s.deliveries, cp(e))
	return nil
}

func (r *deliveryRepo) ListByJob(_ context.Context, jobID uuid.UUID) ([]*models.DeliveryLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.DeliveryLogEntry
	for _, e := range r.s.deliveries {
		if e.JobID == jobID {
			out = append(out, cp(e))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------- admin audit log

type adminLogRepo struct{ s *Store }

func (r *adminLogRepo) Create(_ context.Context, l *models.AdminAuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.CreatedAt = r.s.Now()
	r.s.adminLogs = append(r.s.adminLogs, cp(l))
	return nil
}

func (r *adminLogRepo) ListByTarget(_ context.Context, targetID uuid.UUID) ([]*models.AdminAuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.AdminAuditLog
	for _, l := range r.s.adminLogs {
		if l.TargetID == targetID {
			out = append(out, cp(l))
		}
	}
	return out, nil
}
