package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
)

const DefaultPushInterval = 10 * time.Second

// Pusher receives the throttled position writes
type Pusher interface {
	UpdateProviderLocation(ctx context.Context, jobID uuid.UUID, pos entity.Position) error
}

type TrackerOption func(*Tracker)

func WithPushInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithAcquisitionTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.acquisitionTimeout = d }
}

func WithTrackerLogger(l *infra.LoggerClient) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// Tracker couples a position watch with a separate push timer. The watch
// keeps Latest current; the timer writes the newest unsent fix to the job.
type Tracker struct {
	jobID      uuid.UUID
	providerID uuid.UUID
	source     Source
	pusher     Pusher
	logger     *infra.LoggerClient

	interval           time.Duration
	acquisitionTimeout time.Duration

	mu      sync.Mutex
	latest  *entity.Position
	unsent  bool
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	errs chan *PositionError
}

func NewTracker(jobID, providerID uuid.UUID, source Source, pusher Pusher, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		jobID:      jobID,
		providerID: providerID,
		source:     source,
		pusher:     pusher,
		logger:     infra.NopLogger(),
		interval:   DefaultPushInterval,
		errs:       make(chan *PositionError, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins the watch and the push timer. The tracker outlives ctx's
// cancellation; only Stop ends it. Starting a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := t.source.Watch(runCtx, WatchOptions{
		ProviderID:         t.providerID,
		AcquisitionTimeout: t.acquisitionTimeout,
	})
	if err != nil {
		cancel()
		return err
	}

	t.cancel = cancel
	t.running = true
	t.wg.Add(2)
	go t.watch(runCtx, stream)
	go t.push(runCtx)

	t.logger.InfoWithContextf(ctx, "[Tracker] Tracking provider %s for job %s every %s", t.providerID, t.jobID, t.interval)
	return nil
}

// Stop tears down the watch and the timer. No write starts after Stop returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	t.wg.Wait()
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Latest returns the newest fix seen by the watch.
func (t *Tracker) Latest() (entity.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return entity.Position{}, false
	}
	return *t.latest, true
}

// Errors carries the most recent unread position error.
func (t *Tracker) Errors() <-chan *PositionError { return t.errs }

func (t *Tracker) watch(ctx context.Context, stream *Stream) {
	defer t.wg.Done()
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stream.Done():
			return
		case pos := <-stream.Positions():
			t.mu.Lock()
			t.latest = &pos
			t.unsent = true
			t.mu.Unlock()
		case perr := <-stream.Errors():
			t.logger.WarningWithContextf(ctx, "[Tracker] Job %s: %v", t.jobID, perr)
			replaceLatest(t.errs, perr)
		}
	}
}

func (t *Tracker) push(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.flush(ctx)
		}
	}
}

func (t *Tracker) flush(ctx context.Context) {
	t.mu.Lock()
	if !t.unsent || t.latest == nil {
		t.mu.Unlock()
		return
	}
	pos := *t.latest
	t.unsent = false
	t.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if err := t.pusher.UpdateProviderLocation(ctx, t.jobID, pos); err != nil {
		t.logger.WarningWithContextf(ctx, "[Tracker] Failed to push position for job %s: %v", t.jobID, err)
	}
}
