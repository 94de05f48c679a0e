// Package store defines the persistence contract the booking core talks to.
// Backends: Postgres through gorm (package repository) and Memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

var (
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned when a compare-and-set lost against a concurrent
	// writer, or when a write would break a uniqueness rule such as one active
	// job per client.
	ErrConflict = errors.New("store: conflicting write")
)

// JobStore persists jobs together with their audit trail. Returned jobs carry
// the client and provider summaries joined at read time.
type JobStore interface {
	// CreateJob inserts the job and its creation log entry in one transaction.
	CreateJob(ctx context.Context, job *entity.Job, log *entity.JobLog) (*entity.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// LatestActiveJobForClient returns the most recently created non-terminal job.
	LatestActiveJobForClient(ctx context.Context, clientID uuid.UUID) (*entity.Job, error)
	LatestActiveJobForProvider(ctx context.Context, providerID uuid.UUID) (*entity.Job, error)
	// UpdateJob writes the job's fields only when the stored status still
	// equals expected and the stored version equals job.Version, bumps the
	// version and appends log in the same transaction. A mismatch yields
	// ErrConflict and writes nothing. Breadcrumbs and ProviderLocation are
	// kept from the stored row.
	UpdateJob(ctx context.Context, job *entity.Job, expected entity.JobStatus, log *entity.JobLog) (*entity.Job, error)
	// AppendBreadcrumb adds one sample to the trail, keeping at most
	// entity.MaxBreadcrumbs, and appends log atomically.
	AppendBreadcrumb(ctx context.Context, jobID uuid.UUID, b entity.Breadcrumb, log *entity.JobLog) (*entity.Job, error)
	AppendLog(ctx context.Context, log *entity.JobLog) error
	ListLogs(ctx context.Context, jobID uuid.UUID) ([]entity.JobLog, error)
}

type NotificationStore interface {
	// CreateNotifications reopens a provider's expired offer for the job,
	// skips any other existing one, and returns the offers actually written.
	CreateNotifications(ctx context.Context, notifications []entity.Notification) ([]entity.Notification, error)
	// AcceptNotification flips the provider's offer to accepted only if it is
	// still pending and unexpired at now, then expires every other pending
	// offer for the job. Reports whether this call won.
	AcceptNotification(ctx context.Context, jobID, providerID uuid.UUID, now time.Time) (bool, error)
	DeclineNotification(ctx context.Context, jobID, providerID uuid.UUID) (bool, error)
	// ExpireNotification expires one provider's offer whatever its state
	// unless it was accepted.
	ExpireNotification(ctx context.Context, jobID, providerID uuid.UUID) error
	ExpirePendingNotifications(ctx context.Context, jobID uuid.UUID) (int64, error)
	// ReleaseNotification undoes an acceptance the job could not honour: the
	// provider's accepted offer is expired and every other expired offer for
	// the job goes back to pending until expiresAt. Returns the reopened count.
	ReleaseNotification(ctx context.Context, jobID, providerID uuid.UUID, now, expiresAt time.Time) (int64, error)
	ExpireStaleNotifications(ctx context.Context, now time.Time) (int64, error)
	ListPendingNotifications(ctx context.Context, providerID uuid.UUID, now time.Time) ([]entity.Notification, error)
}

type ProviderStore interface {
	// ListAvailableProviders returns verified, available providers of the
	// category in a stable order. No distance filter is applied.
	ListAvailableProviders(ctx context.Context, category string) ([]entity.Provider, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*entity.Provider, error)
	UpdateProviderLocation(ctx context.Context, id uuid.UUID, latitude, longitude float64, at time.Time) error
	GetClient(ctx context.Context, id uuid.UUID) (*entity.Client, error)
}

type EvidenceStore interface {
	// CreateEvidence inserts the capture and its audit entry together.
	CreateEvidence(ctx context.Context, evidence *entity.Evidence, log *entity.JobLog) error
	CountEvidence(ctx context.Context, jobID uuid.UUID, kind entity.EvidenceKind) (int64, error)
}

// Store is the aggregate persistence interface.
type Store interface {
	JobStore
	NotificationStore
	ProviderStore
	EvidenceStore

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}
