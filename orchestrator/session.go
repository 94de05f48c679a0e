// Package orchestrator keeps one current job per actor session and drives it
// through matching, acceptance, travel and completion.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/lifecycle"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/matching"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/tracking"
)

var (
	// ErrNoLongerAvailable is what the loser of an acceptance race sees.
	ErrNoLongerAvailable = errors.New("job is no longer available")
	ErrNoCurrentJob      = errors.New("session has no current job")
	ErrWrongRole         = errors.New("operation not allowed for this role")
)

// SessionStore persists the current job id of a session between restarts
type SessionStore interface {
	Load(ctx context.Context, role entity.ActorRole, actorID uuid.UUID) (uuid.UUID, bool, error)
	Save(ctx context.Context, role entity.ActorRole, actorID, jobID uuid.UUID) error
	Clear(ctx context.Context, role entity.ActorRole, actorID uuid.UUID) error
}

// ChangeFeed is the remote change subscription keyed by job id
type ChangeFeed interface {
	Subscribe(jobID uuid.UUID) (<-chan entity.JobChange, func())
}

type Deps struct {
	Jobs     *jobs.Repository
	Matching *matching.Engine
	Sessions SessionStore
	// Feed and Devices are optional
	Feed    ChangeFeed
	Devices *tracking.DeviceFeed
	Logger  *infra.LoggerClient

	MaxDistanceKm      float64
	PushInterval       time.Duration
	AcquisitionTimeout time.Duration
}

type SearchRequest struct {
	Location      entity.Location
	Service       entity.ServiceDescriptor
	ScheduledFor  *time.Time
	Currency      string
	MaxDistanceKm float64
}

type SearchResult struct {
	Job        *entity.Job
	Candidates []entity.MatchedCandidate
	Offers     []entity.Notification
}

type Session struct {
	role    entity.ActorRole
	actorID uuid.UUID
	deps    Deps
	logger  *infra.LoggerClient

	mu         sync.Mutex
	current    *entity.Job
	lastErr    error
	boundID    uuid.UUID
	unbind     func()
	tracker    *tracking.Tracker
	trackerJob uuid.UUID
	closed     bool
	updates    chan *entity.Job
}

func NewSession(role entity.ActorRole, actorID uuid.UUID, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Session{
		role:    role,
		actorID: actorID,
		deps:    deps,
		logger:  logger,
		updates: make(chan *entity.Job, 1),
	}
}

func (s *Session) Role() entity.ActorRole { return s.role }

func (s *Session) ActorID() uuid.UUID { return s.actorID }

func (s *Session) actor() jobs.Actor { return jobs.NewActor(s.role, s.actorID) }

// Current returns a copy of the current job, or nil.
func (s *Session) Current() *entity.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Updates delivers the current job after every observed change. Only the
// newest unread value is kept.
func (s *Session) Updates() <-chan *entity.Job { return s.updates }

// LastError is the error of the last operation, nil after a success.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) record(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// Restore loads the persisted job id, falling back to the actor's latest
// active job when the id is missing or stale. A nil job with a nil error
// means the actor has nothing in flight.
func (s *Session) Restore(ctx context.Context) (*entity.Job, error) {
	id, ok, err := s.deps.Sessions.Load(ctx, s.role, s.actorID)
	if err != nil {
		s.logger.WarningWithContextf(ctx, "[Session] Failed to load persisted job for %s %s: %v", s.role, s.actorID, err)
		ok = false
	}
	if ok {
		job, err := s.deps.Jobs.Get(ctx, id, false)
		if err == nil && job.IsActive() && s.owns(job) {
			s.setCurrent(ctx, job)
			return job, s.record(nil)
		}
		s.logger.DebugWithContextf(ctx, "[Session] Persisted job %s for %s %s is stale", id, s.role, s.actorID)
	}

	var job *entity.Job
	switch s.role {
	case entity.ActorClient:
		job, err = s.deps.Jobs.GetActiveForClient(ctx, s.actorID)
	case entity.ActorProvider:
		job, err = s.deps.Jobs.GetActiveForProvider(ctx, s.actorID)
	default:
		return nil, s.record(ErrWrongRole)
	}
	if errors.Is(err, jobs.ErrNotFound) {
		if ok {
			s.clearPersisted(ctx)
		}
		return nil, s.record(nil)
	}
	if err != nil {
		return nil, s.record(err)
	}
	s.setCurrent(ctx, job)
	return job, s.record(nil)
}

// StartSearch creates a job for the client and offers it to the ranked
// candidates. When matching fails after the job was written, the result
// still carries the job.
func (s *Session) StartSearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if s.role != entity.ActorClient {
		return nil, s.record(ErrWrongRole)
	}

	job, err := s.deps.Jobs.Create(ctx, jobs.CreateInput{
		ClientID:     s.actorID,
		Location:     req.Location,
		Service:      req.Service,
		ScheduledFor: req.ScheduledFor,
		Currency:     req.Currency,
	})
	if err != nil {
		return nil, s.record(err)
	}
	s.setCurrent(ctx, job)

	result := &SearchResult{Job: job}
	if err := s.match(ctx, job, req.MaxDistanceKm, result); err != nil {
		return result, s.record(err)
	}
	return result, s.record(nil)
}

// Rematch offers the current searching job again, used after a provider
// handed it back.
func (s *Session) Rematch(ctx context.Context) (*SearchResult, error) {
	job, err := s.requireCurrent()
	if err != nil {
		return nil, s.record(err)
	}
	if s.role != entity.ActorClient {
		return nil, s.record(ErrWrongRole)
	}
	if job.Status != entity.JobStatusSearching {
		return nil, s.record(fmt.Errorf("%w: job is %s", jobs.ErrValidation, job.Status))
	}
	result := &SearchResult{Job: job}
	if err := s.match(ctx, job, 0, result); err != nil {
		return result, s.record(err)
	}
	return result, s.record(nil)
}

func (s *Session) match(ctx context.Context, job *entity.Job, maxDistanceKm float64, result *SearchResult) error {
	if maxDistanceKm <= 0 {
		maxDistanceKm = s.deps.MaxDistanceKm
	}
	candidates, err := s.deps.Matching.FindCandidates(ctx, job.Service.Category, job.Location.Position(), maxDistanceKm, job.Service.Urgency)
	if err != nil {
		return fmt.Errorf("job %s created but matching failed: %w", job.ID, err)
	}
	result.Candidates = candidates

	offers, err := s.deps.Matching.NotifyCandidates(ctx, job.ID, job.Service, job.Location, candidates)
	if err != nil {
		return fmt.Errorf("job %s created but offers failed: %w", job.ID, err)
	}
	result.Offers = offers
	return nil
}

// Accept claims a job for the provider: the offer race is resolved first,
// then the provider is assigned and the job accepted. Losers get
// ErrNoLongerAvailable and their offer is closed.
func (s *Session) Accept(ctx context.Context, jobID uuid.UUID, priceEstimate float64) (*entity.Job, error) {
	if s.role != entity.ActorProvider {
		return nil, s.record(ErrWrongRole)
	}

	job, err := s.deps.Jobs.Get(ctx, jobID, true)
	if err != nil {
		return nil, s.record(err)
	}

	// an admin may already have assigned this provider
	preassigned := job.Status == entity.JobStatusPendingAcceptance && job.ProviderID != nil && *job.ProviderID == s.actorID
	if !preassigned {
		if job.Status != entity.JobStatusSearching {
			return nil, s.record(s.lose(ctx, jobID))
		}
		// a busy provider must not win the race and strand the job
		if err := s.ensureFree(ctx, jobID); err != nil {
			return nil, s.record(err)
		}
		won, err := s.deps.Matching.AcceptNotification(ctx, s.actorID, jobID)
		if err != nil {
			return nil, s.record(err)
		}
		if !won {
			return nil, s.record(s.lose(ctx, jobID))
		}
		if job, err = s.deps.Jobs.AssignProvider(ctx, jobID, s.actorID, priceEstimate); err != nil {
			if errors.Is(err, lifecycle.ErrInvalidTransition) {
				return nil, s.record(s.lose(ctx, jobID))
			}
			s.reopenRace(ctx, jobID)
			return nil, s.record(err)
		}
	}

	job, err = s.deps.Jobs.UpdateStatus(ctx, jobID, entity.JobStatusAccepted, s.actor(), nil)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			return nil, s.record(s.lose(ctx, jobID))
		}
		return nil, s.record(err)
	}
	s.setCurrent(ctx, job)
	s.logger.InfoWithContextf(ctx, "[Session] Provider %s accepted job %s", s.actorID, jobID)
	return job, s.record(nil)
}

func (s *Session) ensureFree(ctx context.Context, jobID uuid.UUID) error {
	active, err := s.deps.Jobs.GetActiveForProvider(ctx, s.actorID)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		return nil
	case err != nil:
		return err
	case active.ID != jobID:
		return fmt.Errorf("%w: %s", jobs.ErrProviderBusy, active.ID)
	}
	return nil
}

// reopenRace reopens the offer race after the winner could not be assigned.
func (s *Session) reopenRace(ctx context.Context, jobID uuid.UUID) {
	if _, err := s.deps.Matching.ReleaseAcceptance(ctx, s.actorID, jobID); err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Session] Failed to reopen offers for job %s", jobID)
	}
}

func (s *Session) lose(ctx context.Context, jobID uuid.UUID) error {
	if err := s.deps.Matching.ExpireNotification(ctx, s.actorID, jobID); err != nil {
		s.logger.DebugWithContextf(ctx, "[Session] No offer to close for provider %s on job %s: %v", s.actorID, jobID, err)
	}
	return ErrNoLongerAvailable
}

// Decline turns down an offer. When the provider was already assigned the
// job goes back to searching.
func (s *Session) Decline(ctx context.Context, jobID uuid.UUID) error {
	if s.role != entity.ActorProvider {
		return s.record(ErrWrongRole)
	}

	job, err := s.deps.Jobs.Get(ctx, jobID, true)
	if err != nil {
		return s.record(err)
	}
	if job.Status == entity.JobStatusPendingAcceptance && job.ProviderID != nil && *job.ProviderID == s.actorID {
		if _, err := s.deps.Jobs.UpdateStatus(ctx, jobID, entity.JobStatusSearching, s.actor(), map[string]any{"reason": "declined by provider"}); err != nil {
			return s.record(err)
		}
		s.release(ctx, jobID)
		return s.record(nil)
	}

	if _, err := s.deps.Matching.DeclineNotification(ctx, s.actorID, jobID); err != nil {
		return s.record(err)
	}
	return s.record(nil)
}

func (s *Session) AdvanceStatus(ctx context.Context, to entity.JobStatus, metadata map[string]any) (*entity.Job, error) {
	current, err := s.requireCurrent()
	if err != nil {
		return nil, s.record(err)
	}
	job, err := s.deps.Jobs.UpdateStatus(ctx, current.ID, to, s.actor(), metadata)
	if err != nil {
		return nil, s.record(err)
	}
	s.apply(ctx, job)
	return job, s.record(nil)
}

func (s *Session) Cancel(ctx context.Context, reason string) (*entity.Job, error) {
	current, err := s.requireCurrent()
	if err != nil {
		return nil, s.record(err)
	}
	job, err := s.deps.Jobs.Cancel(ctx, current.ID, s.actor(), reason)
	if err != nil {
		return nil, s.record(err)
	}
	s.apply(ctx, job)
	return job, s.record(nil)
}

// PushLocation hands a device fix to the running tracker, or writes it
// straight to the job when nothing is tracking.
func (s *Session) PushLocation(ctx context.Context, pos entity.Position) error {
	if s.role != entity.ActorProvider {
		return s.record(ErrWrongRole)
	}
	current, err := s.requireCurrent()
	if err != nil {
		return s.record(err)
	}

	s.mu.Lock()
	tracked := s.tracker != nil && s.trackerJob == current.ID
	s.mu.Unlock()
	if tracked {
		return s.record(s.deps.Devices.Publish(s.actorID, pos))
	}
	return s.record(s.deps.Jobs.UpdateProviderLocation(ctx, current.ID, pos))
}

// ReportPositionError forwards a device read failure to the running watch.
func (s *Session) ReportPositionError(code tracking.ErrorCode, message string) {
	if s.deps.Devices != nil {
		s.deps.Devices.Report(s.actorID, code, message)
	}
}

func (s *Session) VerifySecurityCode(ctx context.Context, code string) (*entity.Job, error) {
	current, err := s.requireCurrent()
	if err != nil {
		return nil, s.record(err)
	}
	job, err := s.deps.Jobs.VerifySecurityCode(ctx, current.ID, code, s.actor())
	if err != nil {
		return nil, s.record(err)
	}
	s.apply(ctx, job)
	return job, s.record(nil)
}

// Refresh re-reads the current job from the store.
func (s *Session) Refresh(ctx context.Context) (*entity.Job, error) {
	current, err := s.requireCurrent()
	if err != nil {
		return nil, s.record(err)
	}
	job, err := s.deps.Jobs.Get(ctx, current.ID, true)
	if err != nil {
		return nil, s.record(err)
	}
	s.apply(ctx, job)
	return job, s.record(nil)
}

// TrackerErrors exposes position errors of the running tracker, or nil.
func (s *Session) TrackerErrors() <-chan *tracking.PositionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return nil
	}
	return s.tracker.Errors()
}

// Close releases subscriptions and stops tracking.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.unbindLocked()
	t := s.tracker
	s.tracker = nil
	s.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

func (s *Session) requireCurrent() (*entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoCurrentJob
	}
	return s.current.Clone(), nil
}

func (s *Session) owns(job *entity.Job) bool {
	switch s.role {
	case entity.ActorClient:
		return job.ClientID == s.actorID
	case entity.ActorProvider:
		return job.ProviderID != nil && *job.ProviderID == s.actorID
	}
	return false
}
