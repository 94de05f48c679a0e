package repository

import (
	"context"
	"errors"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
	"gorm.io/gorm"
)

var _ store.Store = (*Repository)(nil)

// Repository is the Postgres implementation of store.Store
type Repository struct {
	db               *gorm.DB
	JobRepo          *JobRepository
	JobLogRepo       *JobLogRepository
	NotificationRepo *NotificationRepository
	ProviderRepo     *ProviderRepository
	ClientRepo       *ClientRepository
	EvidenceRepo     *EvidenceRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = NewRepository(infra.Postgres.DB)
	return repository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		JobRepo:          NewJobRepository(db),
		JobLogRepo:       NewJobLogRepository(db),
		NotificationRepo: NewNotificationRepository(db),
		ProviderRepo:     NewProviderRepository(db),
		ClientRepo:       NewClientRepository(db),
		EvidenceRepo:     NewEvidenceRepository(db),
	}
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// transaction runs fn against a repository bound to one database transaction.
func (r *Repository) transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTransaction(tx))
	})
}

// Migrate creates the tables plus the partial unique indexes that keep one
// active job per client and per provider.
func (r *Repository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&entity.Client{},
		&entity.Provider{},
		&entity.Job{},
		&entity.JobLog{},
		&entity.Notification{},
		&entity.Evidence{},
	); err != nil {
		return err
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_active_client ON jobs (client_id) WHERE status NOT IN ('completed', 'cancelled')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_active_provider ON jobs (provider_id) WHERE provider_id IS NOT NULL AND status NOT IN ('completed', 'cancelled')`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConflict
	}
	return err
}
