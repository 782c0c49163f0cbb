// backend/services/dispatch-service/internal/services/job_service.go

package services

import (
	"context"
	"strings"

	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/constants"
	"github.com/driverpool/mono-repo/backend/services/dispatch-service/internal/dtos"
	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-repositories"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JobService is the job store: intake, listing and edits while OPEN.
// Creating a job never contacts a driver.
type JobService struct {
	jobs    repositories.JobRepository
	clock   utils.Clock
	auditor adminAuditor
}

func NewJobService(
	jobs repositories.JobRepository,
	adminLogs repositories.AdminAuditLogRepository,
	clock utils.Clock,
) *JobService {
	return &JobService{jobs: jobs, clock: clock, auditor: adminAuditor{repo: adminLogs}}
}

func (s *JobService) CreateJob(ctx context.Context, req dtos.CreateJobRequest) (*models.Job, error) {
	if !req.WindowStart.After(s.clock.Now()) {
		return nil, validationErr("window_start must be in the future", nil)
	}
	job := &models.Job{
		ID:               uuid.New(),
		Status:           models.JobStatusOpen,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerEmail:    strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:    req.CustomerPhone,
		Street:           strings.TrimSpace(req.Street),
		City:             strings.TrimSpace(req.City),
		PostalCode:       strings.TrimSpace(req.PostalCode),
		Country:          strings.ToUpper(req.Country),
		VehicleType:      strings.TrimSpace(req.VehicleType),
		WindowStart:      req.WindowStart.UTC(),
		WindowEnd:        req.WindowEnd.UTC(),
		Requirements:     strings.TrimSpace(req.Requirements),
		BillingModel:     req.BillingModel,
		DefaultRateType:  req.DefaultRateType,
		DefaultRateCents: req.DefaultRateCents,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, internalErr("Failed to create job", err)
	}
	utils.Logger.WithFields(logrus.Fields{
		"job_id":        job.ID,
		"billing_model": job.BillingModel,
	}).Info("Job created, awaiting admin approval")
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, internalErr("Failed to load job", err)
	}
	if job == nil {
		return nil, notFoundErr("Job")
	}
	return job, nil
}

func (s *JobService) ListJobs(ctx context.Context, status string, limit, offset int) (*dtos.ListJobsResponse, error) {
	var filter *models.JobStatusType
	if status != "" {
		st := models.JobStatusType(strings.ToUpper(status))
		if !st.IsValid() {
			return nil, validationErr("Unknown job status filter", nil)
		}
		filter = &st
	}
	if limit <= 0 || limit > constants.DefaultJobListPageLimit {
		limit = constants.DefaultJobListPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	jobs, err := s.jobs.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, internalErr("Failed to list jobs", err)
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	return &dtos.ListJobsResponse{Jobs: jobs, Limit: limit, Offset: offset}, nil
}

// EditJob patches a job that has not been approved yet.
func (s *JobService) EditJob(ctx context.Context, adminID, id uuid.UUID, req dtos.UpdateJobRequest) (*models.Job, error) {
	var before models.Job
	err := s.jobs.UpdateWithRetry(ctx, id, func(j *models.Job) error {
		if j.Status != models.JobStatusOpen {
			return invalidStateErr("Only OPEN jobs can be edited", nil)
		}
		before = *j
		applyJobPatch(j, req)
		if !j.WindowStart.After(s.clock.Now()) {
			return validationErr("window_start must be in the future", nil)
		}
		if !j.WindowEnd.After(j.WindowStart) {
			return validationErr("window_end must be after window_start", nil)
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*utils.AppError); ok {
			return nil, err
		}
		return nil, mapTransitionErr(err, "job")
	}

	updated, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditor.log(ctx, adminID, id, models.AuditUpdate, models.TargetJob, map[string]any{
		"before": before,
		"after":  updated,
	})
	return updated, nil
}

func applyJobPatch(j *models.Job, req dtos.UpdateJobRequest) {
	if req.CustomerName != nil {
		j.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerEmail != nil {
		j.CustomerEmail = strings.ToLower(strings.TrimSpace(*req.CustomerEmail))
	}
	if req.CustomerPhone != nil {
		j.CustomerPhone = *req.CustomerPhone
	}
	if req.Street != nil {
		j.Street = strings.TrimSpace(*req.Street)
	}
	if req.City != nil {
		j.City = strings.TrimSpace(*req.City)
	}
	if req.PostalCode != nil {
		j.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.Country != nil {
		j.Country = strings.ToUpper(*req.Country)
	}
	if req.VehicleType != nil {
		j.VehicleType = strings.TrimSpace(*req.VehicleType)
	}
	if req.WindowStart != nil {
		j.WindowStart = req.WindowStart.UTC()
	}
	if req.WindowEnd != nil {
		j.WindowEnd = req.WindowEnd.UTC()
	}
	if req.Requirements != nil {
		j.Requirements = strings.TrimSpace(*req.Requirements)
	}
	if req.BillingModel != nil {
		j.BillingModel = *req.BillingModel
	}
	if req.DefaultRateType != nil {
		j.DefaultRateType = *req.DefaultRateType
	}
	if req.DefaultRateCents != nil {
		j.DefaultRateCents = *req.DefaultRateCents
	}
}
