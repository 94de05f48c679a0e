package entity

import (
	"time"

	"github.com/google/uuid"
)

// MaxBreadcrumbs caps the recorded provider trail of a job.
const MaxBreadcrumbs = 100

// Position is a single coordinate fix
type Position struct {
	Latitude  float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Accuracy  float64   `json:"accuracy,omitempty" validate:"gte=0"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Breadcrumb is one recorded provider position sample
type Breadcrumb struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// AccessNotes describe how the provider gets to the client on site
type AccessNotes struct {
	Floor     string `json:"floor,omitempty" validate:"max=32"`
	Apartment string `json:"apartment,omitempty" validate:"max=32"`
	Entrance  string `json:"entrance,omitempty" validate:"max=64"`
	Intercom  string `json:"intercom,omitempty" validate:"max=64"`
	Notes     string `json:"notes,omitempty" validate:"max=1000"`
}

// Location is where the service is requested
type Location struct {
	Latitude    float64     `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64     `json:"longitude" validate:"gte=-180,lte=180"`
	Address     string      `json:"address" validate:"required,max=512"`
	AccessNotes AccessNotes `json:"access_notes"`
}

func (l Location) Position() Position {
	return Position{Latitude: l.Latitude, Longitude: l.Longitude}
}

// ServiceDescriptor describes the requested work
type ServiceDescriptor struct {
	Category    string   `json:"category" validate:"required,max=64"`
	Urgency     Urgency  `json:"urgency" validate:"required,oneof=emergency urgent normal"`
	Description string   `json:"description,omitempty" validate:"max=4000"`
	MediaURLs   []string `json:"media_urls,omitempty" validate:"max=10,dive,url"`
}

// ClientSummary is the denormalized client view joined at read time
type ClientSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// ProviderSummary is the denormalized provider view joined at read time
type ProviderSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Category      string    `json:"category"`
	Rating        float64   `json:"rating"`
	CompletedJobs int       `json:"completed_jobs"`
	Verified      bool      `json:"verified"`
}

// Job is the aggregate root of one service request
type Job struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID     uuid.UUID         `json:"client_id" gorm:"type:uuid;not null;index"`
	ProviderID   *uuid.UUID        `json:"provider_id,omitempty" gorm:"type:uuid;index"`
	Status       JobStatus         `json:"status" gorm:"type:varchar(32);not null;index"`
	Location     Location          `json:"location" gorm:"type:jsonb;serializer:json;not null"`
	Service      ServiceDescriptor `json:"service" gorm:"type:jsonb;serializer:json;not null"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`

	SecurityCode           string     `json:"security_code" gorm:"type:varchar(4);not null"`
	SecurityCodeVerifiedAt *time.Time `json:"security_code_verified_at,omitempty"`

	PriceEstimate *float64 `json:"price_estimate,omitempty"`
	FinalPrice    *float64 `json:"final_price,omitempty"`
	Currency      string   `json:"currency" gorm:"type:varchar(3);not null;default:'EUR'"`

	CreatedAt       time.Time  `json:"created_at" gorm:"not null"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	DepartedAt      *time.Time `json:"departed_at,omitempty"`
	ArrivedAt       *time.Time `json:"arrived_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	WorkCompletedAt *time.Time `json:"work_completed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	DisputedAt      *time.Time `json:"disputed_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
	// Version counts field writes; the provider trail does not bump it
	Version int64 `json:"version" gorm:"not null;default:1"`

	CancelledBy        *ActorRole `json:"cancelled_by,omitempty" gorm:"type:varchar(16)"`
	CancellationReason string     `json:"cancellation_reason,omitempty" gorm:"type:text"`

	Breadcrumbs      []Breadcrumb `json:"breadcrumbs" gorm:"type:jsonb;serializer:json"`
	ProviderLocation *Breadcrumb  `json:"provider_location,omitempty" gorm:"type:jsonb;serializer:json"`

	Client   *ClientSummary   `json:"client,omitempty" gorm:"-"`
	Provider *ProviderSummary `json:"provider,omitempty" gorm:"-"`
}

func (Job) TableName() string { return "jobs" }

func (j *Job) IsTerminal() bool { return j.Status.IsTerminal() }

func (j *Job) IsActive() bool { return !j.Status.IsTerminal() }

// AppendBreadcrumb adds a sample and drops the oldest entries beyond MaxBreadcrumbs.
func (j *Job) AppendBreadcrumb(b Breadcrumb) {
	j.Breadcrumbs = append(j.Breadcrumbs, b)
	if over := len(j.Breadcrumbs) - MaxBreadcrumbs; over > 0 {
		trimmed := make([]Breadcrumb, MaxBreadcrumbs)
		copy(trimmed, j.Breadcrumbs[over:])
		j.Breadcrumbs = trimmed
	}
	last := b
	j.ProviderLocation = &last
}

// Clone returns a deep copy so cached entries are never shared with callers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.ProviderID = cloneUUID(j.ProviderID)
	cp.ScheduledFor = cloneTime(j.ScheduledFor)
	cp.SecurityCodeVerifiedAt = cloneTime(j.SecurityCodeVerifiedAt)
	cp.PriceEstimate = cloneFloat(j.PriceEstimate)
	cp.FinalPrice = cloneFloat(j.FinalPrice)
	cp.AssignedAt = cloneTime(j.AssignedAt)
	cp.AcceptedAt = cloneTime(j.AcceptedAt)
	cp.DepartedAt = cloneTime(j.DepartedAt)
	cp.ArrivedAt = cloneTime(j.ArrivedAt)
	cp.StartedAt = cloneTime(j.StartedAt)
	cp.WorkCompletedAt = cloneTime(j.WorkCompletedAt)
	cp.CompletedAt = cloneTime(j.CompletedAt)
	cp.CancelledAt = cloneTime(j.CancelledAt)
	cp.DisputedAt = cloneTime(j.DisputedAt)
	if j.CancelledBy != nil {
		role := *j.CancelledBy
		cp.CancelledBy = &role
	}
	if j.Service.MediaURLs != nil {
		cp.Service.MediaURLs = append([]string(nil), j.Service.MediaURLs...)
	}
	if j.Breadcrumbs != nil {
		cp.Breadcrumbs = append([]Breadcrumb(nil), j.Breadcrumbs...)
	}
	if j.ProviderLocation != nil {
		loc := *j.ProviderLocation
		cp.ProviderLocation = &loc
	}
	if j.Client != nil {
		c := *j.Client
		cp.Client = &c
	}
	if j.Provider != nil {
		p := *j.Provider
		cp.Provider = &p
	}
	return &cp
}

// Milestone returns the timestamp stamped when the job entered the given status.
func (j *Job) Milestone(status JobStatus) *time.Time {
	switch status {
	case JobStatusSearching:
		t := j.CreatedAt
		return &t
	case JobStatusPendingAcceptance:
		return j.AssignedAt
	case JobStatusAccepted:
		return j.AcceptedAt
	case JobStatusEnRoute:
		return j.DepartedAt
	case JobStatusArrived:
		return j.ArrivedAt
	case JobStatusInProgress:
		return j.StartedAt
	case JobStatusPaymentPending:
		return j.WorkCompletedAt
	case JobStatusCompleted:
		return j.CompletedAt
	case JobStatusCancelled:
		return j.CancelledAt
	case JobStatusDisputed:
		return j.DisputedAt
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
