package matching

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store/memory"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var origin = entity.Position{Latitude: 32.0853, Longitude: 34.7818}

// kmPerDegree is the meridian arc length of one degree of latitude.
var kmPerDegree = earthRadiusKm * math.Pi / 180

func north(km float64) (*float64, *float64) {
	lat := origin.Latitude + km/kmPerDegree
	lng := origin.Longitude
	return &lat, &lng
}

func plumber(name string, km, rating float64, jobs int) entity.Provider {
	lat, lng := north(km)
	return entity.Provider{
		ID: uuid.New(), Name: name, Category: "plumbing",
		Rating: rating, CompletedJobs: jobs, Verified: true, Available: true,
		ServiceRadiusKm: 10, Latitude: lat, Longitude: lng,
	}
}

type fakeOffers struct {
	mu   sync.Mutex
	sent []entity.Notification
	err  error
}

func (f *fakeOffers) PublishOffer(_ context.Context, n entity.Notification, _ entity.ServiceDescriptor, _ entity.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func TestHaversine(t *testing.T) {
	t.Parallel()
	jerusalem := entity.Position{Latitude: 31.7683, Longitude: 35.2137}
	if d := Haversine(origin, jerusalem); d < 53 || d > 55 {
		t.Errorf("Tel Aviv to Jerusalem = %.2f km", d)
	}
	if d := Haversine(origin, origin); d != 0 {
		t.Errorf("zero distance = %v", d)
	}
	lat, lng := north(4)
	if d := Haversine(origin, entity.Position{Latitude: *lat, Longitude: *lng}); math.Abs(d-4) > 1e-6 {
		t.Errorf("4 km north = %v", d)
	}
}

func TestEstimateArrival(t *testing.T) {
	t.Parallel()
	tests := []struct {
		km      float64
		urgency entity.Urgency
		want    int
	}{
		{10, entity.UrgencyNormal, 30},
		{5, entity.UrgencyEmergency, 8},
		{1, entity.UrgencyUrgent, 7},
		{0, entity.UrgencyNormal, 10},
		{3, "unknown", 16},
	}
	for _, tt := range tests {
		if got := EstimateArrival(tt.km, tt.urgency); got != tt.want {
			t.Errorf("EstimateArrival(%v, %s) = %d, want %d", tt.km, tt.urgency, got, tt.want)
		}
	}
}

func TestScoreParts(t *testing.T) {
	t.Parallel()
	if got := ProximityScore(12, 10); got != 0 {
		t.Errorf("proximity beyond max = %v", got)
	}
	if got := ProximityScore(0, 10); got != 100 {
		t.Errorf("proximity at origin = %v", got)
	}
	if got := RatingScore(4.5); got != 90 {
		t.Errorf("rating 4.5 = %v", got)
	}
	if got := ExperienceScore(25); got != 50 {
		t.Errorf("experience 25 = %v", got)
	}
	if got := ExperienceScore(500); got != 100 {
		t.Errorf("experience 500 = %v", got)
	}

	bonus := []struct {
		urgency entity.Urgency
		km      float64
		want    float64
	}{
		{entity.UrgencyEmergency, 1.5, 100},
		{entity.UrgencyEmergency, 4, 50},
		{entity.UrgencyEmergency, 7, 0},
		{entity.UrgencyUrgent, 3, 70},
		{entity.UrgencyUrgent, 5.5, 30},
		{entity.UrgencyUrgent, 8, 0},
		{entity.UrgencyNormal, 0.5, 0},
	}
	for _, tt := range bonus {
		if got := UrgencyBonus(tt.urgency, tt.km); got != tt.want {
			t.Errorf("UrgencyBonus(%s, %v) = %v, want %v", tt.urgency, tt.km, got, tt.want)
		}
	}

	experience := []struct {
		jobs int
		want float64
	}{
		{0, 0},
		{25, 50},
		{50, 100},
		{500, 100},
	}
	for _, tt := range experience {
		if got := ExperienceScore(tt.jobs); got != tt.want {
			t.Errorf("ExperienceScore(%d) = %v, want %v", tt.jobs, got, tt.want)
		}
	}

	top := Score(Factors{DistanceKm: 0, MaxDistanceKm: 10, Rating: 5, CompletedJobs: 80, Verified: true, Urgency: entity.UrgencyEmergency})
	if top != 100 {
		t.Errorf("best possible score = %d", top)
	}
	if got := Score(Factors{DistanceKm: 20, MaxDistanceKm: 10}); got != 0 {
		t.Errorf("worst score = %d", got)
	}
}

func TestFindCandidatesPlumbingScenario(t *testing.T) {
	t.Parallel()
	s := memory.New()
	near := plumber("near", 1.0, 4.9, 0)
	mid := plumber("mid", 4.0, 4.5, 500)
	far := plumber("far", 9.5, 4.0, 10)
	for _, p := range []entity.Provider{near, mid, far} {
		s.PutProvider(p)
	}

	unverified := plumber("unverified", 2, 5, 100)
	unverified.Verified = false
	tightRadius := plumber("tight radius", 5, 5, 100)
	tightRadius.ServiceRadiusKm = 3
	noFix := plumber("no fix", 1, 5, 100)
	noFix.Latitude, noFix.Longitude = nil, nil
	electrician := plumber("electrician", 1, 5, 100)
	electrician.Category = "electrical"
	for _, p := range []entity.Provider{unverified, tightRadius, noFix, electrician} {
		s.PutProvider(p)
	}

	e := NewEngine(s)
	got, err := e.FindCandidates(context.Background(), "plumbing", origin, 10, entity.UrgencyNormal)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates", len(got))
	}

	order := []uuid.UUID{got[0].Provider.ID, got[1].Provider.ID, got[2].Provider.ID}
	if want := []uuid.UUID{mid.ID, near.ID, far.ID}; !reflect.DeepEqual(order, want) {
		t.Errorf("ranking = %v, want mid, near, far", order)
	}

	// 0.3*60 + 0.25*90 + 0.2*100 + 0.15*100 = 75.5
	if got[0].Score < 75 || got[0].Score > 76 {
		t.Errorf("mid score = %d", got[0].Score)
	}
	if got[1].Score < 66 || got[1].Score > 67 {
		t.Errorf("near score = %d", got[1].Score)
	}
	if got[2].Score < 40 || got[2].Score > 41 {
		t.Errorf("far score = %d", got[2].Score)
	}
	if got[2].EtaMinutes != EstimateArrival(got[2].DistanceKm, entity.UrgencyNormal) {
		t.Errorf("far eta = %d", got[2].EtaMinutes)
	}
}

func TestFindCandidatesDeterministic(t *testing.T) {
	t.Parallel()
	s := memory.New()
	first := plumber("first", 2, 4.2, 30)
	twin := plumber("twin", 2, 4.2, 30)
	twin.Latitude, twin.Longitude = first.Latitude, first.Longitude
	s.PutProvider(first)
	s.PutProvider(twin)
	s.PutProvider(plumber("other", 6, 3.1, 3))

	e := NewEngine(s)
	a, err := e.FindCandidates(context.Background(), "plumbing", origin, 10, entity.UrgencyUrgent)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.FindCandidates(context.Background(), "plumbing", origin, 10, entity.UrgencyUrgent)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated searches differ:\n%+v\n%+v", a, b)
	}
	if a[0].Provider.ID != first.ID || a[1].Provider.ID != twin.ID {
		t.Error("tie not broken by enumeration order")
	}
}

func TestNotifyCandidatesAndAcceptRace(t *testing.T) {
	t.Parallel()
	s := memory.New()
	providers := []entity.Provider{plumber("a", 1, 4.9, 10), plumber("b", 2, 4.7, 20), plumber("c", 3, 4.1, 5)}
	for _, p := range providers {
		s.PutProvider(p)
	}

	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	offers := &fakeOffers{}
	e := NewEngine(s, WithOfferPublisher(offers), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	candidates, err := e.FindCandidates(ctx, "plumbing", origin, 10, entity.UrgencyNormal)
	if err != nil {
		t.Fatal(err)
	}
	jobID := uuid.New()
	created, err := e.NotifyCandidates(ctx, jobID, entity.ServiceDescriptor{Category: "plumbing"}, entity.Location{Address: "x"}, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 3 || len(offers.sent) != 3 {
		t.Fatalf("created %d offers, pushed %d", len(created), len(offers.sent))
	}
	for _, n := range created {
		if n.Status != entity.NotificationPending || !n.ExpiresAt.Equal(now.Add(entity.OfferWindow)) {
			t.Errorf("offer = %+v", n)
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []uuid.UUID
	)
	for _, p := range providers {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			ok, err := e.AcceptNotification(ctx, id, jobID)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				wins = append(wins, id)
				mu.Unlock()
			}
		}(p.ID)
	}
	wg.Wait()

	if len(wins) != 1 {
		t.Fatalf("%d acceptances won", len(wins))
	}
	for _, p := range providers {
		pending, err := e.PendingOffers(ctx, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 0 {
			t.Errorf("provider %s still has %d pending offers", p.Name, len(pending))
		}
	}
}

func TestNotifyCandidatesSwallowsPushFailure(t *testing.T) {
	t.Parallel()
	s := memory.New()
	p := plumber("a", 1, 4, 1)
	s.PutProvider(p)

	e := NewEngine(s, WithOfferPublisher(&fakeOffers{err: errors.New("broker down")}))
	ctx := context.Background()
	candidates, _ := e.FindCandidates(ctx, "plumbing", origin, 10, entity.UrgencyNormal)
	if _, err := e.NotifyCandidates(ctx, uuid.New(), entity.ServiceDescriptor{}, entity.Location{}, candidates); err != nil {
		t.Fatalf("push failure surfaced: %v", err)
	}
	pending, _ := e.PendingOffers(ctx, p.ID)
	if len(pending) != 1 {
		t.Errorf("pending = %d", len(pending))
	}
}

func TestDeclineAndSweep(t *testing.T) {
	t.Parallel()
	s := memory.New()
	a, b := plumber("a", 1, 4, 1), plumber("b", 2, 4, 1)
	s.PutProvider(a)
	s.PutProvider(b)

	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	e := NewEngine(s, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	candidates, _ := e.FindCandidates(ctx, "plumbing", origin, 10, entity.UrgencyNormal)
	jobID := uuid.New()
	if _, err := e.NotifyCandidates(ctx, jobID, entity.ServiceDescriptor{}, entity.Location{}, candidates); err != nil {
		t.Fatal(err)
	}

	if ok, err := e.DeclineNotification(ctx, a.ID, jobID); err != nil || !ok {
		t.Fatalf("decline: ok=%v err=%v", ok, err)
	}
	if ok, _ := e.DeclineNotification(ctx, a.ID, jobID); ok {
		t.Error("second decline succeeded")
	}

	now = now.Add(entity.OfferWindow)
	n, err := e.SweepExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("swept %d offers, want 1", n)
	}
	if ok, _ := e.AcceptNotification(ctx, b.ID, jobID); ok {
		t.Error("accepted an expired offer")
	}
}

func TestCandidateHistogram(t *testing.T) {
	t.Parallel()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	s := memory.New()
	s.PutProvider(plumber("a", 1, 4, 1))
	s.PutProvider(plumber("b", 3, 4, 1))

	e := NewEngine(s, WithMeter(meter))
	if _, err := e.FindCandidates(context.Background(), "plumbing", origin, 10, entity.UrgencyNormal); err != nil {
		t.Fatal(err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "booking.matching.candidates" {
				continue
			}
			h := m.Data.(metricdata.Histogram[int64])
			if len(h.DataPoints) != 1 || h.DataPoints[0].Sum != 2 {
				t.Errorf("histogram = %+v", h.DataPoints)
			}
			return
		}
	}
	t.Error("booking.matching.candidates not recorded")
}
