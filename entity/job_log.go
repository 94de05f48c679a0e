package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobLogAction is the closed set of audited mutations
type JobLogAction string

const (
	ActionJobCreated           JobLogAction = "job_created"
	ActionStatusChanged        JobLogAction = "status_changed"
	ActionProviderAssigned     JobLogAction = "provider_assigned"
	ActionLocationUpdated      JobLogAction = "location_updated"
	ActionPriceUpdated         JobLogAction = "price_updated"
	ActionSecurityCodeVerified JobLogAction = "security_code_verified"
	ActionPaymentInitiated     JobLogAction = "payment_initiated"
	ActionPaymentCompleted     JobLogAction = "payment_completed"
	ActionPaymentFailed        JobLogAction = "payment_failed"
	ActionCancelled            JobLogAction = "cancelled"
	ActionAdminAction          JobLogAction = "admin_action"
	ActionSystemEvent          JobLogAction = "system_event"
)

// JobLog is an append-only audit record; rows are never updated or deleted
type JobLog struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	JobID          uuid.UUID      `json:"job_id" gorm:"type:uuid;not null;index"`
	Action         JobLogAction   `json:"action" gorm:"type:varchar(32);not null;index"`
	ActorRole      ActorRole      `json:"actor_role" gorm:"type:varchar(16);not null"`
	ActorID        *uuid.UUID     `json:"actor_id,omitempty" gorm:"type:uuid"`
	PreviousStatus *JobStatus     `json:"previous_status,omitempty" gorm:"type:varchar(32)"`
	NewStatus      *JobStatus     `json:"new_status,omitempty" gorm:"type:varchar(32)"`
	Metadata       datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null;index"`
}

func (JobLog) TableName() string { return "job_logs" }

// JobChange is the change-feed envelope published after a job row changes.
// Receivers treat it as a hint and re-fetch the authoritative row.
type JobChange struct {
	JobID     uuid.UUID    `json:"job_id"`
	Status    JobStatus    `json:"status"`
	Action    JobLogAction `json:"action"`
	Timestamp int64        `json:"timestamp"`
}
