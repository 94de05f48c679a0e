package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var terminalStatuses = []entity.JobStatus{entity.JobStatusCompleted, entity.JobStatusCancelled}

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends
func (r *JobRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) FindLatestActiveByClientID(ctx context.Context, clientID uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status NOT IN ?", clientID, terminalStatuses).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) FindLatestActiveByProviderID(ctx context.Context, providerID uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND status NOT IN ?", providerID, terminalStatuses).
		Order("created_at DESC").
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateIfStatus writes the job's fields when the stored row still has the
// expected status and the version job was read at, bumping the version.
// The trail columns belong to UpdateTrail and are never written here.
// Reports whether a row was written.
func (r *JobRepository) UpdateIfStatus(ctx context.Context, job *entity.Job, expected entity.JobStatus) (bool, error) {
	readVersion := job.Version
	job.Version = readVersion + 1
	job.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Where("id = ? AND status = ? AND version = ?", job.ID, expected, readVersion).
		Select("*").
		Omit("id", "client_id", "created_at", "breadcrumbs", "provider_location").
		Updates(job)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *JobRepository) UpdateTrail(ctx context.Context, job *entity.Job) error {
	job.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&entity.Job{}).
		Where("id = ?", job.ID).
		Select("breadcrumbs", "provider_location", "updated_at").
		Updates(job).Error
}

func (r *JobRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Job{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ──────────────────────────────────────────────────
// store.JobStore
// ──────────────────────────────────────────────────

func (r *Repository) CreateJob(ctx context.Context, job *entity.Job, log *entity.JobLog) (*entity.Job, error) {
	err := r.transaction(ctx, func(tx *Repository) error {
		if err := tx.JobRepo.Create(ctx, job); err != nil {
			return err
		}
		return tx.JobLogRepo.Create(ctx, log)
	})
	if err != nil {
		return nil, translate(err)
	}
	return r.GetJob(ctx, job.ID)
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, err := r.JobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return r.withSummaries(ctx, job)
}

func (r *Repository) LatestActiveJobForClient(ctx context.Context, clientID uuid.UUID) (*entity.Job, error) {
	job, err := r.JobRepo.FindLatestActiveByClientID(ctx, clientID)
	if err != nil {
		return nil, translate(err)
	}
	return r.withSummaries(ctx, job)
}

func (r *Repository) LatestActiveJobForProvider(ctx context.Context, providerID uuid.UUID) (*entity.Job, error) {
	job, err := r.JobRepo.FindLatestActiveByProviderID(ctx, providerID)
	if err != nil {
		return nil, translate(err)
	}
	return r.withSummaries(ctx, job)
}

func (r *Repository) UpdateJob(ctx context.Context, job *entity.Job, expected entity.JobStatus, log *entity.JobLog) (*entity.Job, error) {
	row := job.Clone()
	err := r.transaction(ctx, func(tx *Repository) error {
		written, err := tx.JobRepo.UpdateIfStatus(ctx, row, expected)
		if err != nil {
			return err
		}
		if !written {
			exists, err := tx.JobRepo.Exists(ctx, row.ID)
			if err != nil {
				return err
			}
			if !exists {
				return store.ErrNotFound
			}
			return store.ErrConflict
		}
		if log == nil {
			return nil
		}
		return tx.JobLogRepo.Create(ctx, log)
	})
	if err != nil {
		return nil, translate(err)
	}
	return r.GetJob(ctx, row.ID)
}

func (r *Repository) AppendBreadcrumb(ctx context.Context, jobID uuid.UUID, b entity.Breadcrumb, log *entity.JobLog) (*entity.Job, error) {
	err := r.transaction(ctx, func(tx *Repository) error {
		job, err := tx.JobRepo.FindByIDForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		job.AppendBreadcrumb(b)
		if err := tx.JobRepo.UpdateTrail(ctx, job); err != nil {
			return err
		}
		if log == nil {
			return nil
		}
		return tx.JobLogRepo.Create(ctx, log)
	})
	if err != nil {
		return nil, translate(err)
	}
	return r.GetJob(ctx, jobID)
}

func (r *Repository) AppendLog(ctx context.Context, log *entity.JobLog) error {
	return translate(r.JobLogRepo.Create(ctx, log))
}

func (r *Repository) ListLogs(ctx context.Context, jobID uuid.UUID) ([]entity.JobLog, error) {
	logs, err := r.JobLogRepo.FindByJobID(ctx, jobID)
	return logs, translate(err)
}

// withSummaries joins the denormalized client and provider views.
// A missing profile leaves the summary empty rather than failing the read.
func (r *Repository) withSummaries(ctx context.Context, job *entity.Job) (*entity.Job, error) {
	client, err := r.ClientRepo.FindByID(ctx, job.ClientID)
	switch translate(err) {
	case nil:
		s := client.Summary()
		job.Client = &s
	case store.ErrNotFound:
	default:
		return nil, err
	}

	if job.ProviderID == nil {
		return job, nil
	}
	provider, err := r.ProviderRepo.FindByID(ctx, *job.ProviderID)
	switch translate(err) {
	case nil:
		s := provider.Summary()
		job.Provider = &s
	case store.ErrNotFound:
	default:
		return nil, err
	}
	return job, nil
}
