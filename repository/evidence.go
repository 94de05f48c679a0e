package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"gorm.io/gorm"
)

type EvidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

func (r *EvidenceRepository) Create(ctx context.Context, evidence *entity.Evidence) error {
	return r.db.WithContext(ctx).Create(evidence).Error
}

func (r *EvidenceRepository) CountByJobIDAndKind(ctx context.Context, jobID uuid.UUID, kind entity.EvidenceKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Evidence{}).
		Where("job_id = ? AND kind = ?", jobID, kind).
		Count(&count).Error
	return count, err
}

func (r *Repository) CreateEvidence(ctx context.Context, evidence *entity.Evidence, log *entity.JobLog) error {
	err := r.transaction(ctx, func(tx *Repository) error {
		if err := tx.EvidenceRepo.Create(ctx, evidence); err != nil {
			return err
		}
		if log == nil {
			return nil
		}
		return tx.JobLogRepo.Create(ctx, log)
	})
	return translate(err)
}

func (r *Repository) CountEvidence(ctx context.Context, jobID uuid.UUID, kind entity.EvidenceKind) (int64, error) {
	n, err := r.EvidenceRepo.CountByJobIDAndKind(ctx, jobID, kind)
	return n, translate(err)
}
