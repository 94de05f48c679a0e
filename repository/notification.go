package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateIfAbsent inserts each offer, reopening a provider's expired offer for
// the job and leaving any other existing one alone. Returns the rows written.
func (r *NotificationRepository) CreateIfAbsent(ctx context.Context, notifications []entity.Notification) ([]entity.Notification, error) {
	created := make([]entity.Notification, 0, len(notifications))
	for i := range notifications {
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "job_id"}, {Name: "provider_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"status", "distance_km", "eta_minutes", "created_at", "expires_at"}),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Eq{Column: clause.Column{Table: "notifications", Name: "status"}, Value: entity.NotificationExpired},
				}},
			}, clause.Returning{}).
			Create(&notifications[i])
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			created = append(created, notifications[i])
		}
	}
	return created, nil
}

// SetStatusIf moves one offer from the given status, optionally only while
// unexpired. Reports whether a row changed.
func (r *NotificationRepository) SetStatusIf(ctx context.Context, jobID, providerID uuid.UUID, from, to entity.NotificationStatus, unexpiredAt *time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("job_id = ? AND provider_id = ? AND status = ?", jobID, providerID, from)
	if unexpiredAt != nil {
		q = q.Where("expires_at > ?", *unexpiredAt)
	}
	res := q.Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r *NotificationRepository) ExpireForProvider(ctx context.Context, jobID, providerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("job_id = ? AND provider_id = ? AND status <> ?", jobID, providerID, entity.NotificationAccepted).
		Update("status", entity.NotificationExpired)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) ExpirePendingByJobID(ctx context.Context, jobID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("job_id = ? AND status = ?", jobID, entity.NotificationPending).
		Update("status", entity.NotificationExpired)
	return res.RowsAffected, res.Error
}

// ReopenExpired puts the job's expired offers, other than the given
// provider's, back to pending with a fresh window.
func (r *NotificationRepository) ReopenExpired(ctx context.Context, jobID, exceptProviderID uuid.UUID, now, expiresAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("job_id = ? AND provider_id <> ? AND status = ?", jobID, exceptProviderID, entity.NotificationExpired).
		Updates(map[string]any{
			"status":     entity.NotificationPending,
			"created_at": now,
			"expires_at": expiresAt,
		})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) ExpirePendingBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("status = ? AND expires_at <= ?", entity.NotificationPending, now).
		Update("status", entity.NotificationExpired)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) FindPendingByProviderID(ctx context.Context, providerID uuid.UUID, now time.Time) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND status = ? AND expires_at > ?", providerID, entity.NotificationPending, now).
		Order("created_at ASC").
		Find(&notifications).Error
	return notifications, err
}

// ──────────────────────────────────────────────────
// store.NotificationStore
// ──────────────────────────────────────────────────

func (r *Repository) CreateNotifications(ctx context.Context, notifications []entity.Notification) ([]entity.Notification, error) {
	var created []entity.Notification
	err := r.transaction(ctx, func(tx *Repository) error {
		var err error
		created, err = tx.NotificationRepo.CreateIfAbsent(ctx, notifications)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return created, nil
}

func (r *Repository) AcceptNotification(ctx context.Context, jobID, providerID uuid.UUID, now time.Time) (bool, error) {
	var won bool
	err := r.transaction(ctx, func(tx *Repository) error {
		ok, err := tx.NotificationRepo.SetStatusIf(ctx, jobID, providerID, entity.NotificationPending, entity.NotificationAccepted, &now)
		if err != nil || !ok {
			return err
		}
		won = true
		_, err = tx.NotificationRepo.ExpirePendingByJobID(ctx, jobID)
		return err
	})
	if err != nil {
		return false, translate(err)
	}
	return won, nil
}

func (r *Repository) DeclineNotification(ctx context.Context, jobID, providerID uuid.UUID) (bool, error) {
	ok, err := r.NotificationRepo.SetStatusIf(ctx, jobID, providerID, entity.NotificationPending, entity.NotificationDeclined, nil)
	return ok, translate(err)
}

func (r *Repository) ExpireNotification(ctx context.Context, jobID, providerID uuid.UUID) error {
	_, err := r.NotificationRepo.ExpireForProvider(ctx, jobID, providerID)
	return translate(err)
}

func (r *Repository) ReleaseNotification(ctx context.Context, jobID, providerID uuid.UUID, now, expiresAt time.Time) (int64, error) {
	var reopened int64
	err := r.transaction(ctx, func(tx *Repository) error {
		if _, err := tx.NotificationRepo.SetStatusIf(ctx, jobID, providerID, entity.NotificationAccepted, entity.NotificationExpired, nil); err != nil {
			return err
		}
		var err error
		reopened, err = tx.NotificationRepo.ReopenExpired(ctx, jobID, providerID, now, expiresAt)
		return err
	})
	if err != nil {
		return 0, translate(err)
	}
	return reopened, nil
}

func (r *Repository) ExpirePendingNotifications(ctx context.Context, jobID uuid.UUID) (int64, error) {
	n, err := r.NotificationRepo.ExpirePendingByJobID(ctx, jobID)
	return n, translate(err)
}

func (r *Repository) ExpireStaleNotifications(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.NotificationRepo.ExpirePendingBefore(ctx, now)
	return n, translate(err)
}

func (r *Repository) ListPendingNotifications(ctx context.Context, providerID uuid.UUID, now time.Time) ([]entity.Notification, error) {
	n, err := r.NotificationRepo.FindPendingByProviderID(ctx, providerID, now)
	return n, translate(err)
}
