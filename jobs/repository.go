// Package jobs owns job records for one process: a read-through cache over
// the store, the audit trail of every mutation, and per-job fan-out of
// changes to local subscribers and the remote change feed.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

const securityCodeAlphabet = "0123456789"

var validate = validator.New()

// ChangePublisher forwards job changes to other processes
type ChangePublisher interface {
	PublishJobChange(ctx context.Context, change entity.JobChange) error
}

// Actor is who performs a mutation; ID is nil for the system actor
type Actor struct {
	Role entity.ActorRole
	ID   *uuid.UUID
}

func NewActor(role entity.ActorRole, id uuid.UUID) Actor {
	return Actor{Role: role, ID: &id}
}

func SystemActor() Actor {
	return Actor{Role: entity.ActorSystem}
}

type CreateInput struct {
	ClientID     uuid.UUID
	Location     entity.Location
	Service      entity.ServiceDescriptor
	ScheduledFor *time.Time
	Currency     string `validate:"omitempty,len=3,alpha"`
}

type Repository struct {
	store     store.Store
	publisher ChangePublisher
	logger    *infra.LoggerClient
	meter     metric.Meter
	tracer    trace.Tracer
	now       func() time.Time
	newCode   func() (string, error)

	mu      sync.RWMutex
	cache   map[uuid.UUID]*entity.Job
	subs    map[uuid.UUID]map[uint64]chan *entity.Job
	nextSub uint64

	transitions     metric.Int64Counter
	created         metric.Int64Counter
	locationUpdates metric.Int64Counter
}

func New(s store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		logger: infra.NopLogger(),
		meter:  otel.Meter("booking/jobs"),
		tracer: otel.Tracer("booking/jobs"),
		now:    func() time.Time { return time.Now().UTC() },
		newCode: func() (string, error) {
			return gonanoid.Generate(securityCodeAlphabet, 4)
		},
		cache: make(map[uuid.UUID]*entity.Job),
		subs:  make(map[uuid.UUID]map[uint64]chan *entity.Job),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	if r.transitions, err = r.meter.Int64Counter("booking.job.transitions",
		metric.WithDescription("Job status transitions committed"),
		metric.WithUnit("{transition}")); err != nil {
		otel.Handle(err)
	}
	if r.created, err = r.meter.Int64Counter("booking.job.created",
		metric.WithDescription("Jobs created"),
		metric.WithUnit("{job}")); err != nil {
		otel.Handle(err)
	}
	if r.locationUpdates, err = r.meter.Int64Counter("booking.job.location_updates",
		metric.WithDescription("Provider positions appended to job trails"),
		metric.WithUnit("{update}")); err != nil {
		otel.Handle(err)
	}
	return r
}

// Create writes a new job in searching status for the client.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*entity.Job, error) {
	ctx, span := r.tracer.Start(ctx, "jobs.Create")
	defer span.End()

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	existing, err := r.store.LatestActiveJobForClient(ctx, in.ClientID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrActiveJobExists, existing.ID)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check active jobs for client %s: %w", in.ClientID, err)
	}

	code, err := r.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate security code: %w", err)
	}

	currency := in.Currency
	if currency == "" {
		currency = "EUR"
	}
	now := r.now()
	job := &entity.Job{
		ID:           uuid.New(),
		ClientID:     in.ClientID,
		Status:       entity.JobStatusSearching,
		Location:     in.Location,
		Service:      in.Service,
		ScheduledFor: in.ScheduledFor,
		SecurityCode: code,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
		Breadcrumbs:  []entity.Breadcrumb{},
	}

	searching := entity.JobStatusSearching
	entry := r.newLog(job.ID, entity.ActionJobCreated, NewActor(entity.ActorClient, in.ClientID), nil, &searching, map[string]any{
		"category": in.Service.Category,
		"urgency":  in.Service.Urgency,
	})

	saved, err := r.store.CreateJob(ctx, job, entry)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrActiveJobExists
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	r.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", in.Service.Category),
		attribute.String("urgency", string(in.Service.Urgency)),
	))
	r.logger.InfoWithContextf(ctx, "[Job Repository] Created job %s for client %s", saved.ID, saved.ClientID)
	return r.commit(ctx, saved, entity.ActionJobCreated), nil
}

// Get serves from cache unless bypassCache is set. A failed store read falls
// back to the cached copy when there is one.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, bypassCache bool) (*entity.Job, error) {
	if !bypassCache {
		if job, ok := r.cached(id); ok {
			return job, nil
		}
	}

	job, err := r.store.GetJob(ctx, id)
	if err == nil {
		r.refresh(job)
		return job.Clone(), nil
	}
	if errors.Is(err, store.ErrNotFound) {
		r.invalidate(id)
		return nil, ErrNotFound
	}
	if cached, ok := r.cached(id); ok {
		r.logger.WarningWithContextf(ctx, "[Job Repository] Serving cached job %s after read failure: %v", id, err)
		return cached, nil
	}
	return nil, fmt.Errorf("failed to read job %s: %w", id, err)
}

func (r *Repository) GetActiveForClient(ctx context.Context, clientID uuid.UUID) (*entity.Job, error) {
	return r.getActive(ctx, r.store.LatestActiveJobForClient, clientID, func(j *entity.Job) bool {
		return j.ClientID == clientID
	})
}

func (r *Repository) GetActiveForProvider(ctx context.Context, providerID uuid.UUID) (*entity.Job, error) {
	return r.getActive(ctx, r.store.LatestActiveJobForProvider, providerID, func(j *entity.Job) bool {
		return j.ProviderID != nil && *j.ProviderID == providerID
	})
}

func (r *Repository) getActive(ctx context.Context, fetch func(context.Context, uuid.UUID) (*entity.Job, error), actorID uuid.UUID, owns func(*entity.Job) bool) (*entity.Job, error) {
	job, err := fetch(ctx, actorID)
	if err == nil {
		r.refresh(job)
		return job.Clone(), nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	var latest *entity.Job
	for _, j := range r.cache {
		if j.IsActive() && owns(j) && (latest == nil || j.CreatedAt.After(latest.CreatedAt)) {
			latest = j
		}
	}
	r.mu.RUnlock()
	if latest != nil {
		r.logger.WarningWithContextf(ctx, "[Job Repository] Serving cached active job %s after read failure: %v", latest.ID, err)
		return latest.Clone(), nil
	}
	return nil, fmt.Errorf("failed to read active job for %s: %w", actorID, err)
}

// UpdateStatus validates and commits one lifecycle transition. A "reason"
// string in metadata is recorded as the cancellation reason.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, to entity.JobStatus, actor Actor, metadata map[string]any) (*entity.Job, error) {
	action := entity.ActionStatusChanged
	if to == entity.JobStatusCancelled {
		action = entity.ActionCancelled
	}
	if actor.Role == entity.ActorAdmin {
		action = entity.ActionAdminAction
	}
	reason, _ := metadata["reason"].(string)

	return r.mutate(ctx, id, mutation{
		to:       to,
		action:   action,
		actor:    actor,
		metadata: metadata,
		reason:   reason,
	})
}

// AssignProvider binds the provider and moves the job to pending_acceptance.
func (r *Repository) AssignProvider(ctx context.Context, id, providerID uuid.UUID, priceEstimate float64) (*entity.Job, error) {
	if priceEstimate < 0 {
		return nil, fmt.Errorf("%w: price estimate must not be negative", ErrValidation)
	}

	busy, err := r.store.LatestActiveJobForProvider(ctx, providerID)
	switch {
	case err == nil && busy.ID != id:
		return nil, fmt.Errorf("%w: %s", ErrProviderBusy, busy.ID)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check active jobs for provider %s: %w", providerID, err)
	}

	return r.mutate(ctx, id, mutation{
		to:     entity.JobStatusPendingAcceptance,
		action: entity.ActionProviderAssigned,
		actor:  NewActor(entity.ActorProvider, providerID),
		metadata: map[string]any{
			"provider_id":    providerID.String(),
			"price_estimate": priceEstimate,
		},
		apply: func(j *entity.Job) error {
			pid, price := providerID, priceEstimate
			j.ProviderID = &pid
			j.PriceEstimate = &price
			return nil
		},
	})
}

// UpdateProviderLocation appends a breadcrumb and mirrors the position onto
// the provider record. The mirror write is best effort.
func (r *Repository) UpdateProviderLocation(ctx context.Context, id uuid.UUID, pos entity.Position) error {
	ctx, span := r.tracer.Start(ctx, "jobs.UpdateProviderLocation")
	defer span.End()

	if err := validate.Struct(pos); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	current, err := r.Get(ctx, id, false)
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		return ErrJobClosed
	}

	at := pos.Timestamp
	if at.IsZero() {
		at = r.now()
	}
	crumb := entity.Breadcrumb{Latitude: pos.Latitude, Longitude: pos.Longitude, Timestamp: at}

	actor := Actor{Role: entity.ActorProvider, ID: current.ProviderID}
	entry := r.newLog(id, entity.ActionLocationUpdated, actor, nil, nil, map[string]any{
		"lat":      pos.Latitude,
		"lng":      pos.Longitude,
		"accuracy": pos.Accuracy,
	})

	saved, err := r.store.AppendBreadcrumb(ctx, id, crumb, entry)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.invalidate(id)
			return ErrNotFound
		}
		r.invalidate(id)
		return fmt.Errorf("failed to append breadcrumb to job %s: %w", id, err)
	}

	if saved.ProviderID != nil {
		if err := r.store.UpdateProviderLocation(ctx, *saved.ProviderID, pos.Latitude, pos.Longitude, at); err != nil {
			r.logger.WarningWithContextf(ctx, "[Job Repository] Failed to mirror position onto provider %s: %v", *saved.ProviderID, err)
		}
	}

	r.locationUpdates.Add(ctx, 1)
	r.commit(ctx, saved, entity.ActionLocationUpdated)
	return nil
}

func (r *Repository) cached(id uuid.UUID) (*entity.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.cache[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// refresh replaces the cache entry with an authoritative read and tells local
// subscribers when the row moved on.
func (r *Repository) refresh(job *entity.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.cache[job.ID]
	r.cache[job.ID] = job.Clone()
	if had && (prev.Status != job.Status || !prev.UpdatedAt.Equal(job.UpdatedAt)) {
		r.notifyLocked(job)
	}
}

func (r *Repository) invalidate(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, id)
}

// commit records a successful write: cache replace, local fan-out, then the
// remote change feed.
func (r *Repository) commit(ctx context.Context, job *entity.Job, action entity.JobLogAction) *entity.Job {
	r.mu.Lock()
	r.cache[job.ID] = job.Clone()
	r.notifyLocked(job)
	r.mu.Unlock()

	if r.publisher != nil {
		change := entity.JobChange{JobID: job.ID, Status: job.Status, Action: action, Timestamp: r.now().Unix()}
		if err := r.publisher.PublishJobChange(ctx, change); err != nil {
			r.logger.WarningWithContextf(ctx, "[Job Repository] Failed to publish change for job %s: %v", job.ID, err)
		}
	}
	return job.Clone()
}

func (r *Repository) newLog(jobID uuid.UUID, action entity.JobLogAction, actor Actor, prev, next *entity.JobStatus, metadata map[string]any) *entity.JobLog {
	entry := &entity.JobLog{
		ID:             uuid.New(),
		JobID:          jobID,
		Action:         action,
		ActorRole:      actor.Role,
		ActorID:        actor.ID,
		PreviousStatus: prev,
		NewStatus:      next,
		CreatedAt:      r.now(),
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	return entry
}

func validateCreate(in CreateInput) error {
	if in.ClientID == uuid.Nil {
		return fmt.Errorf("%w: client id is required", ErrValidation)
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !in.Service.Urgency.Valid() {
		return fmt.Errorf("%w: unknown urgency %q", ErrValidation, in.Service.Urgency)
	}
	return nil
}
