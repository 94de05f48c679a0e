package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"gorm.io/gorm"
)

// JobLogRepository only ever inserts; audit rows are never updated or deleted
type JobLogRepository struct {
	db *gorm.DB
}

func NewJobLogRepository(db *gorm.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

func (r *JobLogRepository) Create(ctx context.Context, log *entity.JobLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *JobLogRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]entity.JobLog, error) {
	var logs []entity.JobLog
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at ASC").Find(&logs).Error
	return logs, err
}
