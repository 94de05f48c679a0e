package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	var provider entity.Provider
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&provider).Error
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

// FindAvailableByCategory orders by creation so the matching tie-break is stable
func (r *ProviderRepository) FindAvailableByCategory(ctx context.Context, category string) ([]entity.Provider, error) {
	var providers []entity.Provider
	err := r.db.WithContext(ctx).
		Where("category = ? AND verified = ? AND available = ?", category, true, true).
		Order("created_at ASC, id ASC").
		Find(&providers).Error
	return providers, err
}

func (r *ProviderRepository) UpdateLocation(ctx context.Context, id uuid.UUID, latitude, longitude float64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Provider{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"latitude":            latitude,
			"longitude":           longitude,
			"location_updated_at": at,
		})
	return res.RowsAffected, res.Error
}

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// ──────────────────────────────────────────────────
// store.ProviderStore
// ──────────────────────────────────────────────────

func (r *Repository) ListAvailableProviders(ctx context.Context, category string) ([]entity.Provider, error) {
	providers, err := r.ProviderRepo.FindAvailableByCategory(ctx, category)
	return providers, translate(err)
}

func (r *Repository) GetProvider(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	provider, err := r.ProviderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return provider, nil
}

func (r *Repository) UpdateProviderLocation(ctx context.Context, id uuid.UUID, latitude, longitude float64, at time.Time) error {
	n, err := r.ProviderRepo.UpdateLocation(ctx, id, latitude, longitude, at)
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) GetClient(ctx context.Context, id uuid.UUID) (*entity.Client, error) {
	client, err := r.ClientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return client, nil
}
