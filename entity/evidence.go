package entity

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceKind says whether a capture documents the site before or after the work
type EvidenceKind string

const (
	EvidenceBefore EvidenceKind = "before"
	EvidenceAfter  EvidenceKind = "after"
)

func (k EvidenceKind) Valid() bool {
	return k == EvidenceBefore || k == EvidenceAfter
}

// Evidence is a photo or video captured on site; the media lives in object storage
type Evidence struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	JobID       uuid.UUID    `json:"job_id" gorm:"type:uuid;not null;index:idx_evidence_job_kind"`
	Kind        EvidenceKind `json:"kind" gorm:"type:varchar(16);not null;index:idx_evidence_job_kind"`
	ObjectKey   string       `json:"object_key" gorm:"type:varchar(1024);not null"`
	ContentType string       `json:"content_type" gorm:"type:varchar(255)"`
	SizeBytes   int64        `json:"size_bytes" gorm:"not null"`
	CapturedBy  uuid.UUID    `json:"captured_by" gorm:"type:uuid;not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;autoCreateTime"`
}

func (Evidence) TableName() string { return "job_evidence" }
