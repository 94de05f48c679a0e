package entity

import (
	"time"

	"github.com/google/uuid"
)

// OfferWindow is how long a provider has to answer an offer.
const OfferWindow = 5 * time.Minute

// NotificationStatus tracks the answer to an offer
type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "pending"
	NotificationAccepted NotificationStatus = "accepted"
	NotificationDeclined NotificationStatus = "declined"
	NotificationExpired  NotificationStatus = "expired"
)

// Notification is a time-boxed offer of a job to one candidate provider
type Notification struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	JobID      uuid.UUID          `json:"job_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_notification_job_provider"`
	ProviderID uuid.UUID          `json:"provider_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_notification_job_provider"`
	Status     NotificationStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	DistanceKm float64            `json:"distance_km" gorm:"not null"`
	EtaMinutes int                `json:"eta_minutes" gorm:"not null"`
	CreatedAt  time.Time          `json:"created_at" gorm:"not null"`
	ExpiresAt  time.Time          `json:"expires_at" gorm:"not null;index"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) ExpiredAt(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// MatchedCandidate is one scored provider for a search; never persisted
type MatchedCandidate struct {
	Provider   ProviderSummary `json:"provider"`
	DistanceKm float64         `json:"distance_km"`
	EtaMinutes int             `json:"eta_minutes"`
	Score      int             `json:"score"`
	Available  bool            `json:"available"`
}
