package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
)

func newJob(clientID uuid.UUID) *entity.Job {
	now := time.Now().UTC()
	return &entity.Job{
		ID:           uuid.New(),
		ClientID:     clientID,
		Status:       entity.JobStatusSearching,
		SecurityCode: "1234",
		Currency:     "EUR",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUpdateJobCompareAndSet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(uuid.New())
	if _, err := s.CreateJob(ctx, j, nil); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	next := j.Clone()
	next.Status = entity.JobStatusCancelled
	if _, err := s.UpdateJob(ctx, next, entity.JobStatusAccepted, nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale expected status: err = %v, want ErrConflict", err)
	}
	got, _ := s.GetJob(ctx, j.ID)
	if got.Status != entity.JobStatusSearching {
		t.Fatalf("row changed on conflict: %s", got.Status)
	}

	log := &entity.JobLog{ID: uuid.New(), JobID: j.ID, Action: entity.ActionCancelled}
	if _, err := s.UpdateJob(ctx, next, entity.JobStatusSearching, log); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	logs, _ := s.ListLogs(ctx, j.ID)
	if len(logs) != 1 || logs[0].Action != entity.ActionCancelled {
		t.Errorf("logs = %+v", logs)
	}
}

func TestUpdateJobRejectsStaleVersionAndKeepsTrail(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	j := newJob(uuid.New())
	j.Version = 1
	if _, err := s.CreateJob(ctx, j, nil); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	read, _ := s.GetJob(ctx, j.ID)

	if _, err := s.AppendBreadcrumb(ctx, j.ID, entity.Breadcrumb{Latitude: 32.1, Longitude: 34.8}, nil); err != nil {
		t.Fatalf("AppendBreadcrumb: %v", err)
	}

	priced := read.Clone()
	price := 180.0
	priced.FinalPrice = &price
	saved, err := s.UpdateJob(ctx, priced, entity.JobStatusSearching, nil)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if len(saved.Breadcrumbs) != 1 || saved.ProviderLocation == nil {
		t.Fatalf("trail lost by field write: %d breadcrumbs", len(saved.Breadcrumbs))
	}
	if saved.Version != 2 {
		t.Errorf("version = %d, want 2", saved.Version)
	}

	// a second writer still holding the first read must not overwrite the price
	other := read.Clone()
	other.SecurityCodeVerifiedAt = &saved.UpdatedAt
	if _, err := s.UpdateJob(ctx, other, entity.JobStatusSearching, nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale version: err = %v, want ErrConflict", err)
	}
	got, _ := s.GetJob(ctx, j.ID)
	if got.FinalPrice == nil || *got.FinalPrice != price || got.SecurityCodeVerifiedAt != nil {
		t.Errorf("row after stale write: price=%v verified=%v", got.FinalPrice, got.SecurityCodeVerifiedAt)
	}
}

func TestCreateJobRejectsSecondActiveJobForClient(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	client := uuid.New()

	if _, err := s.CreateJob(ctx, newJob(client), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateJob(ctx, newJob(client), nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestAcceptNotificationSingleWinner(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	jobID := uuid.New()
	now := time.Now().UTC()

	var notifs []entity.Notification
	providers := make([]uuid.UUID, 8)
	for i := range providers {
		providers[i] = uuid.New()
		notifs = append(notifs, entity.Notification{
			ID: uuid.New(), JobID: jobID, ProviderID: providers[i],
			Status: entity.NotificationPending, CreatedAt: now, ExpiresAt: now.Add(entity.OfferWindow),
		})
	}
	if _, err := s.CreateNotifications(ctx, notifs); err != nil {
		t.Fatal(err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p uuid.UUID) {
			defer wg.Done()
			ok, err := s.AcceptNotification(ctx, jobID, p, now)
			if err != nil {
				t.Error(err)
			}
			if ok {
				wins.Add(1)
			}
		}(p)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("wins = %d, want 1", wins.Load())
	}
	for _, p := range providers {
		pending, _ := s.ListPendingNotifications(ctx, p, now)
		if len(pending) != 0 {
			t.Errorf("provider %s still has pending offers", p)
		}
	}
}

func TestAcceptNotificationRejectsExpired(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	jobID, providerID := uuid.New(), uuid.New()
	created := time.Now().UTC().Add(-10 * time.Minute)

	_, _ = s.CreateNotifications(ctx, []entity.Notification{{
		ID: uuid.New(), JobID: jobID, ProviderID: providerID,
		Status: entity.NotificationPending, CreatedAt: created, ExpiresAt: created.Add(entity.OfferWindow),
	}})

	ok, err := s.AcceptNotification(ctx, jobID, providerID, time.Now().UTC())
	if err != nil || ok {
		t.Fatalf("ok = %v, err = %v; want false, nil", ok, err)
	}
	n, _ := s.ExpireStaleNotifications(ctx, time.Now().UTC())
	if n != 1 {
		t.Errorf("expired %d stale offers, want 1", n)
	}
}

func TestAppendBreadcrumbKeepsCap(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	j := newJob(uuid.New())
	_, _ = s.CreateJob(ctx, j, nil)

	var last *entity.Job
	for i := 0; i < entity.MaxBreadcrumbs+20; i++ {
		var err error
		last, err = s.AppendBreadcrumb(ctx, j.ID, entity.Breadcrumb{Latitude: float64(i)}, nil)
		if err != nil {
			t.Fatal(err)
		}
	}
	if len(last.Breadcrumbs) != entity.MaxBreadcrumbs {
		t.Fatalf("len = %d", len(last.Breadcrumbs))
	}
	if last.Breadcrumbs[0].Latitude != 20 {
		t.Errorf("head = %v, want 20", last.Breadcrumbs[0].Latitude)
	}
}

func TestReadsJoinSummaries(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	client := entity.Client{ID: uuid.New(), Name: "Dana"}
	provider := entity.Provider{ID: uuid.New(), Name: "Sam", Category: "plumbing", Rating: 4.8}
	s.PutClient(client)
	s.PutProvider(provider)

	j := newJob(client.ID)
	j.ProviderID = &provider.ID
	s.PutJob(j)

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Client == nil || got.Client.Name != "Dana" {
		t.Errorf("client summary = %+v", got.Client)
	}
	if got.Provider == nil || got.Provider.Rating != 4.8 {
		t.Errorf("provider summary = %+v", got.Provider)
	}
}

func TestCreateNotificationsReopensOnlyExpired(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	jobID := uuid.New()
	expired, declined := uuid.New(), uuid.New()
	now := time.Now().UTC()

	offer := func(p uuid.UUID, at time.Time) entity.Notification {
		return entity.Notification{
			ID: uuid.New(), JobID: jobID, ProviderID: p,
			Status: entity.NotificationPending, CreatedAt: at, ExpiresAt: at.Add(entity.OfferWindow),
		}
	}
	if _, err := s.CreateNotifications(ctx, []entity.Notification{offer(expired, now), offer(declined, now)}); err != nil {
		t.Fatal(err)
	}
	_ = s.ExpireNotification(ctx, jobID, expired)
	_, _ = s.DeclineNotification(ctx, jobID, declined)

	later := now.Add(time.Minute)
	created, err := s.CreateNotifications(ctx, []entity.Notification{offer(expired, later), offer(declined, later)})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].ProviderID != expired {
		t.Fatalf("created = %+v, want only the expired offer reopened", created)
	}
	if created[0].Status != entity.NotificationPending || !created[0].ExpiresAt.Equal(later.Add(entity.OfferWindow)) {
		t.Errorf("reopened offer = %+v", created[0])
	}
	if pending, _ := s.ListPendingNotifications(ctx, declined, later); len(pending) != 0 {
		t.Errorf("declined provider has %d pending offers", len(pending))
	}
}

func TestReleaseNotificationReopensLosers(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	jobID := uuid.New()
	winner, loser, decliner := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()

	var notifs []entity.Notification
	for _, p := range []uuid.UUID{winner, loser, decliner} {
		notifs = append(notifs, entity.Notification{
			ID: uuid.New(), JobID: jobID, ProviderID: p,
			Status: entity.NotificationPending, CreatedAt: now, ExpiresAt: now.Add(entity.OfferWindow),
		})
	}
	if _, err := s.CreateNotifications(ctx, notifs); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeclineNotification(ctx, jobID, decliner); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.AcceptNotification(ctx, jobID, winner, now); !ok {
		t.Fatal("winner did not win")
	}

	later := now.Add(time.Minute)
	reopened, err := s.ReleaseNotification(ctx, jobID, winner, later, later.Add(entity.OfferWindow))
	if err != nil || reopened != 1 {
		t.Fatalf("reopened = %d err = %v, want 1", reopened, err)
	}
	if got := s.findNotificationLocked(jobID, winner).Status; got != entity.NotificationExpired {
		t.Errorf("winner offer = %s, want expired", got)
	}
	if got := s.findNotificationLocked(jobID, decliner).Status; got != entity.NotificationDeclined {
		t.Errorf("declined offer = %s", got)
	}
	pending, _ := s.ListPendingNotifications(ctx, loser, later)
	if len(pending) != 1 || !pending[0].ExpiresAt.Equal(later.Add(entity.OfferWindow)) {
		t.Fatalf("loser offers = %+v", pending)
	}
}
