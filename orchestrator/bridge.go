package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/tracking"
)

// setCurrent makes job the session's current job. Switching jobs rebinds the
// local and remote subscriptions and persists the new id.
func (s *Session) setCurrent(ctx context.Context, job *entity.Job) {
	s.mu.Lock()
	if s.current != nil && s.current.ID == job.ID {
		s.mu.Unlock()
		s.apply(ctx, job)
		return
	}

	s.unbindLocked()
	s.current = job.Clone()
	if !s.closed && job.IsActive() {
		s.bindLocked(job.ID)
	}
	replaceLatest(s.updates, job.Clone())
	s.mu.Unlock()

	if job.IsActive() {
		if err := s.deps.Sessions.Save(ctx, s.role, s.actorID, job.ID); err != nil {
			s.logger.WarningWithContextf(ctx, "[Session] Failed to persist job %s for %s %s: %v", job.ID, s.role, s.actorID, err)
		}
	}
	s.reconcile(ctx, job)
}

// apply accepts a newer copy of the current job from any source.
func (s *Session) apply(ctx context.Context, job *entity.Job) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != job.ID || stale(s.current, job) {
		s.mu.Unlock()
		return
	}
	s.current = job.Clone()
	replaceLatest(s.updates, job.Clone())
	s.mu.Unlock()

	s.reconcile(ctx, job)
}

// stale reports whether next carries nothing newer than cur.
func stale(cur, next *entity.Job) bool {
	if next.UpdatedAt.Before(cur.UpdatedAt) {
		return true
	}
	return next.UpdatedAt.Equal(cur.UpdatedAt) &&
		next.Status == cur.Status &&
		len(next.Breadcrumbs) == len(cur.Breadcrumbs) &&
		(next.SecurityCodeVerifiedAt != nil) == (cur.SecurityCodeVerifiedAt != nil)
}

func (s *Session) reconcile(ctx context.Context, job *entity.Job) {
	s.syncTracker(ctx, job)
	// a provider keeps a job only while assigned to it
	if job.IsTerminal() || !s.owns(job) {
		s.release(ctx, job.ID)
	}
}

// syncTracker runs a tracker exactly while the provider's current job is en route.
func (s *Session) syncTracker(ctx context.Context, job *entity.Job) {
	s.mu.Lock()
	want := s.role == entity.ActorProvider &&
		!s.closed &&
		s.deps.Devices != nil &&
		job.Status == entity.JobStatusEnRoute &&
		s.owns(job)

	var stop *tracking.Tracker
	if s.tracker != nil && (!want || s.trackerJob != job.ID) {
		stop = s.tracker
		s.tracker = nil
	}
	if want && s.tracker == nil {
		t := tracking.NewTracker(job.ID, s.actorID, s.deps.Devices, s.deps.Jobs,
			tracking.WithPushInterval(s.deps.PushInterval),
			tracking.WithAcquisitionTimeout(s.deps.AcquisitionTimeout),
			tracking.WithTrackerLogger(s.logger),
		)
		if err := t.Start(ctx); err != nil {
			s.logger.ErrorWithContextf(ctx, err, "[Session] Failed to start tracking job %s", job.ID)
		} else {
			s.tracker = t
			s.trackerJob = job.ID
		}
	}
	s.mu.Unlock()

	if stop != nil {
		stop.Stop()
	}
}

// release drops the subscriptions of a job that left the session and clears
// the persisted id so a restore does not bring it back.
func (s *Session) release(ctx context.Context, jobID uuid.UUID) {
	s.mu.Lock()
	if s.boundID == jobID {
		s.unbindLocked()
	}
	var stop *tracking.Tracker
	if s.tracker != nil && s.trackerJob == jobID {
		stop = s.tracker
		s.tracker = nil
	}
	if s.current != nil && s.current.ID == jobID && s.current.IsActive() {
		// handed back before completion
		s.current = nil
	}
	s.mu.Unlock()

	if stop != nil {
		stop.Stop()
	}
	// ctx may belong to the subscription just cancelled
	s.clearPersisted(context.WithoutCancel(ctx))
}

func (s *Session) clearPersisted(ctx context.Context) {
	if err := s.deps.Sessions.Clear(ctx, s.role, s.actorID); err != nil {
		s.logger.WarningWithContextf(ctx, "[Session] Failed to clear persisted job for %s %s: %v", s.role, s.actorID, err)
	}
}

func (s *Session) bindLocked(jobID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	local, unsubLocal := s.deps.Jobs.Subscribe(jobID)

	var remote <-chan entity.JobChange
	unsubRemote := func() {}
	if s.deps.Feed != nil {
		remote, unsubRemote = s.deps.Feed.Subscribe(jobID)
	}

	s.boundID = jobID
	s.unbind = func() {
		cancel()
		unsubLocal()
		unsubRemote()
	}
	go s.bridge(ctx, jobID, local, remote)
}

func (s *Session) unbindLocked() {
	if s.unbind != nil {
		s.unbind()
		s.unbind = nil
	}
	s.boundID = uuid.Nil
}

// bridge merges same-process writes and remote change events into the
// current job. Remote events only signal; the job is always re-read.
func (s *Session) bridge(ctx context.Context, jobID uuid.UUID, local <-chan *entity.Job, remote <-chan entity.JobChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-local:
			if !ok {
				return
			}
			s.apply(ctx, job)
		case _, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
			job, err := s.deps.Jobs.Get(ctx, jobID, true)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.WarningWithContextf(ctx, "[Session] Failed to re-read job %s after remote change: %v", jobID, err)
				}
				continue
			}
			s.apply(ctx, job)
		}
	}
}

func replaceLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
