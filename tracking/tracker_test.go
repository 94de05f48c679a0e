package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store/memory"
)

// recordingPusher forwards to another pusher and reports every write.
type recordingPusher struct {
	next    Pusher
	mu      sync.Mutex
	count   int
	written chan entity.Position
}

func (r *recordingPusher) UpdateProviderLocation(ctx context.Context, jobID uuid.UUID, pos entity.Position) error {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	var err error
	if r.next != nil {
		err = r.next.UpdateProviderLocation(ctx, jobID, pos)
	}
	r.written <- pos
	return err
}

func (r *recordingPusher) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func travellingJob(t *testing.T) (*jobs.Repository, uuid.UUID, uuid.UUID) {
	t.Helper()
	s := memory.New()
	providerID := uuid.New()
	s.PutProvider(entity.Provider{ID: providerID, Name: "Avi", Category: "locksmith", Verified: true, Available: true})

	repo := jobs.New(s)
	ctx := context.Background()
	job, err := repo.Create(ctx, jobs.CreateInput{
		ClientID: uuid.New(),
		Location: entity.Location{Latitude: 31.25, Longitude: 34.79, Address: "Rager 10, Beer Sheva"},
		Service:  entity.ServiceDescriptor{Category: "locksmith", Urgency: entity.UrgencyEmergency},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.AssignProvider(ctx, job.ID, providerID, 200); err != nil {
		t.Fatal(err)
	}
	actor := jobs.NewActor(entity.ActorProvider, providerID)
	for _, to := range []entity.JobStatus{entity.JobStatusAccepted, entity.JobStatusEnRoute} {
		if _, err := repo.UpdateStatus(ctx, job.ID, to, actor, nil); err != nil {
			t.Fatal(err)
		}
	}
	return repo, job.ID, providerID
}

func TestTrackerPushesThenStopsWriting(t *testing.T) {
	t.Parallel()
	repo, jobID, providerID := travellingJob(t)
	ctx := context.Background()

	feed := NewDeviceFeed(0, 1, time.Minute)
	pusher := &recordingPusher{next: repo, written: make(chan entity.Position, 128)}
	tracker := NewTracker(jobID, providerID, feed, pusher, WithPushInterval(2*time.Millisecond))
	if err := tracker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	for i := range 50 {
		pos := entity.Position{Latitude: 31.2 + float64(i)*0.001, Longitude: 34.8, Timestamp: base.Add(time.Duration(i) * time.Second)}
		if err := feed.Publish(providerID, pos); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		select {
		case got := <-pusher.written:
			if !got.Timestamp.Equal(pos.Timestamp) {
				t.Fatalf("push %d carried fix from %s", i, got.Timestamp)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("fix %d never pushed", i)
		}
	}

	if _, err := repo.UpdateStatus(ctx, jobID, entity.JobStatusArrived, jobs.NewActor(entity.ActorProvider, providerID), nil); err != nil {
		t.Fatal(err)
	}
	tracker.Stop()
	tracker.Stop()

	if feed.Watching(providerID) {
		t.Error("watch still registered after Stop")
	}
	for i := range 5 {
		_ = feed.Publish(providerID, entity.Position{Latitude: 30, Longitude: 34, Timestamp: base.Add(time.Hour + time.Duration(i))})
	}
	time.Sleep(20 * time.Millisecond)
	if n := pusher.writes(); n != 50 {
		t.Errorf("writes = %d after teardown, want 50", n)
	}

	job, err := repo.Get(ctx, jobID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(job.Breadcrumbs) != 50 {
		t.Fatalf("breadcrumbs = %d", len(job.Breadcrumbs))
	}
	for i := 1; i < len(job.Breadcrumbs); i++ {
		if !job.Breadcrumbs[i].Timestamp.After(job.Breadcrumbs[i-1].Timestamp) {
			t.Fatalf("breadcrumb %d out of order", i)
		}
	}
}

func TestTrackerSurfacesErrorsWithoutStopping(t *testing.T) {
	t.Parallel()
	providerID := uuid.New()
	feed := NewDeviceFeed(0, 1, time.Minute)
	pusher := &recordingPusher{written: make(chan entity.Position, 8)}
	tracker := NewTracker(uuid.New(), providerID, feed, pusher, WithPushInterval(time.Millisecond))
	if err := tracker.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tracker.Stop()

	feed.Report(providerID, PermissionDenied, "location services off")
	select {
	case perr := <-tracker.Errors():
		if perr.Code != PermissionDenied {
			t.Errorf("code = %s", perr.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error not surfaced")
	}

	if err := feed.Publish(providerID, entity.Position{Latitude: 1, Longitude: 2}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-pusher.written:
	case <-time.After(2 * time.Second):
		t.Fatal("watch stopped after an error")
	}
	if pos, ok := tracker.Latest(); !ok || pos.Latitude != 1 {
		t.Errorf("latest = %+v, %v", pos, ok)
	}
	if !tracker.Running() {
		t.Error("tracker stopped")
	}
}

func TestDeviceFeedRaisesTimeout(t *testing.T) {
	t.Parallel()
	providerID := uuid.New()
	feed := NewDeviceFeed(0, 1, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := feed.Watch(ctx, WatchOptions{ProviderID: providerID})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case perr := <-stream.Errors():
		if perr.Code != Timeout {
			t.Errorf("code = %s", perr.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no timeout raised")
	}

	_ = feed.Publish(providerID, entity.Position{Latitude: 5})
	select {
	case pos := <-stream.Positions():
		if pos.Latitude != 5 {
			t.Errorf("position = %+v", pos)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream dead after timeout")
	}

	cancel()
	select {
	case <-stream.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream not stopped by context")
	}
}

func TestDeviceFeedRateLimit(t *testing.T) {
	t.Parallel()
	feed := NewDeviceFeed(1, 2, time.Minute)
	a, b := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b} {
		stream, err := feed.Watch(context.Background(), WatchOptions{ProviderID: id})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(stream.Stop)
	}

	for i := range 2 {
		if err := feed.Publish(a, entity.Position{}); err != nil {
			t.Fatalf("fix %d: %v", i, err)
		}
	}
	if err := feed.Publish(a, entity.Position{}); !errors.Is(err, ErrRateLimited) {
		t.Errorf("third fix: err = %v", err)
	}
	if err := feed.Publish(b, entity.Position{}); err != nil {
		t.Errorf("other provider limited: %v", err)
	}
}

func TestDeviceFeedDropsLimiterWithLastWatch(t *testing.T) {
	t.Parallel()
	feed := NewDeviceFeed(1, 1, time.Minute)
	providerID := uuid.New()
	limiters := func() int {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.limiters)
	}

	if err := feed.Publish(uuid.New(), entity.Position{}); err != nil {
		t.Fatalf("unwatched fix: %v", err)
	}
	if n := limiters(); n != 0 {
		t.Fatalf("limiters after unwatched fix = %d", n)
	}

	first, _ := feed.Watch(context.Background(), WatchOptions{ProviderID: providerID})
	second, _ := feed.Watch(context.Background(), WatchOptions{ProviderID: providerID})
	if err := feed.Publish(providerID, entity.Position{}); err != nil {
		t.Fatal(err)
	}
	first.Stop()
	if n := limiters(); n != 1 {
		t.Fatalf("limiters with one watch left = %d, want 1", n)
	}
	// the remaining watch still shares the exhausted limiter
	if err := feed.Publish(providerID, entity.Position{}); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second fix: err = %v", err)
	}
	second.Stop()
	if n := limiters(); n != 0 {
		t.Fatalf("limiters after last watch = %d, want 0", n)
	}
}

func TestPositionErrorMessage(t *testing.T) {
	t.Parallel()
	err := &PositionError{Code: Timeout, Message: "no fix within 15s"}
	if got := err.Error(); got != "position error: timeout: no fix within 15s" {
		t.Errorf("Error() = %q", got)
	}
}
