// Package matching ranks available providers for a request and manages the
// time-boxed offers sent to them.
package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Store is the slice of the persistent store the engine reads and writes
type Store interface {
	store.ProviderStore
	store.NotificationStore
}

// OfferPublisher pushes a created offer to the provider's device
type OfferPublisher interface {
	PublishOffer(ctx context.Context, n entity.Notification, service entity.ServiceDescriptor, location entity.Location) error
}

type Engine struct {
	store  Store
	offers OfferPublisher
	logger *infra.LoggerClient
	tracer trace.Tracer
	now    func() time.Time

	maxDistanceKm   float64
	defaultRadiusKm float64
	maxNotified     int
	offerTTL        time.Duration

	candidates metric.Int64Histogram
}

func NewEngine(s Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		logger:          infra.NopLogger(),
		tracer:          otel.Tracer("booking/matching"),
		now:             func() time.Time { return time.Now().UTC() },
		maxDistanceKm:   10,
		defaultRadiusKm: entity.DefaultServiceRadiusKm,
		offerTTL:        entity.OfferWindow,
	}
	meter := otel.Meter("booking/matching")
	for _, opt := range opts {
		opt(e, &meter)
	}

	var err error
	e.candidates, err = meter.Int64Histogram("booking.matching.candidates",
		metric.WithDescription("Providers kept per candidate search"),
		metric.WithUnit("{provider}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10, 20, 50))
	if err != nil {
		otel.Handle(err)
	}
	return e
}

// FindCandidates ranks the verified, available providers of a category that
// are within both maxDistanceKm and their own service radius. Providers with
// no known position are skipped. Equal scores keep the store's order.
func (e *Engine) FindCandidates(ctx context.Context, category string, origin entity.Position, maxDistanceKm float64, urgency entity.Urgency) ([]entity.MatchedCandidate, error) {
	ctx, span := e.tracer.Start(ctx, "matching.FindCandidates")
	defer span.End()

	if maxDistanceKm <= 0 {
		maxDistanceKm = e.maxDistanceKm
	}

	providers, err := e.store.ListAvailableProviders(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers for %s: %w", category, err)
	}

	candidates := make([]entity.MatchedCandidate, 0, len(providers))
	for i := range providers {
		p := &providers[i]
		pos, ok := p.Position()
		if !ok {
			continue
		}
		distance := Haversine(origin, pos)
		if distance > maxDistanceKm || distance > e.radius(p) {
			continue
		}
		candidates = append(candidates, entity.MatchedCandidate{
			Provider:   p.Summary(),
			DistanceKm: distance,
			EtaMinutes: EstimateArrival(distance, urgency),
			Score: Score(Factors{
				DistanceKm:    distance,
				MaxDistanceKm: maxDistanceKm,
				Rating:        p.Rating,
				CompletedJobs: p.CompletedJobs,
				Verified:      p.Verified,
				Urgency:       urgency,
			}),
			Available: p.Available,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	e.candidates.Record(ctx, int64(len(candidates)), metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("urgency", string(urgency)),
	))
	e.logger.DebugWithContextf(ctx, "[Matching] %d of %d %s providers within %.1f km", len(candidates), len(providers), category, maxDistanceKm)
	return candidates, nil
}

func (e *Engine) radius(p *entity.Provider) float64 {
	if p.ServiceRadiusKm > 0 {
		return p.ServiceRadiusKm
	}
	return e.defaultRadiusKm
}

// NotifyCandidates writes one pending offer per candidate and pushes each to
// its provider. Providers already offered the job are skipped. Push failures
// are logged; the offers stay valid.
func (e *Engine) NotifyCandidates(ctx context.Context, jobID uuid.UUID, service entity.ServiceDescriptor, origin entity.Location, candidates []entity.MatchedCandidate) ([]entity.Notification, error) {
	ctx, span := e.tracer.Start(ctx, "matching.NotifyCandidates")
	defer span.End()

	if e.maxNotified > 0 && len(candidates) > e.maxNotified {
		candidates = candidates[:e.maxNotified]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	now := e.now()
	notifications := make([]entity.Notification, 0, len(candidates))
	for _, c := range candidates {
		notifications = append(notifications, entity.Notification{
			ID:         uuid.New(),
			JobID:      jobID,
			ProviderID: c.Provider.ID,
			Status:     entity.NotificationPending,
			DistanceKm: c.DistanceKm,
			EtaMinutes: c.EtaMinutes,
			CreatedAt:  now,
			ExpiresAt:  now.Add(e.offerTTL),
		})
	}

	notifications, err := e.store.CreateNotifications(ctx, notifications)
	if err != nil {
		return nil, fmt.Errorf("failed to create offers for job %s: %w", jobID, err)
	}

	if e.offers != nil {
		for _, n := range notifications {
			if err := e.offers.PublishOffer(ctx, n, service, origin); err != nil {
				e.logger.WarningWithContextf(ctx, "[Matching] Failed to push offer %s to provider %s: %v", n.ID, n.ProviderID, err)
			}
		}
	}

	e.logger.InfoWithContextf(ctx, "[Matching] Offered job %s to %d providers", jobID, len(notifications))
	return notifications, nil
}

// AcceptNotification claims the provider's pending offer. Only the first
// acceptance per job succeeds; every other pending offer is then expired.
// Callers must still validate the job's own transition.
func (e *Engine) AcceptNotification(ctx context.Context, providerID, jobID uuid.UUID) (bool, error) {
	ok, err := e.store.AcceptNotification(ctx, jobID, providerID, e.now())
	if err != nil {
		return false, fmt.Errorf("failed to accept offer for job %s: %w", jobID, err)
	}
	return ok, nil
}

func (e *Engine) DeclineNotification(ctx context.Context, providerID, jobID uuid.UUID) (bool, error) {
	ok, err := e.store.DeclineNotification(ctx, jobID, providerID)
	if err != nil {
		return false, fmt.Errorf("failed to decline offer for job %s: %w", jobID, err)
	}
	return ok, nil
}

// ExpireNotification closes a provider's offer that lost the acceptance race.
func (e *Engine) ExpireNotification(ctx context.Context, providerID, jobID uuid.UUID) error {
	if err := e.store.ExpireNotification(ctx, jobID, providerID); err != nil {
		return fmt.Errorf("failed to expire offer for job %s: %w", jobID, err)
	}
	return nil
}

// ReleaseAcceptance hands a job back to the offer race after its winner could
// not be assigned. The winner's offer is closed and the offers expired by its
// acceptance are reopened for a fresh window.
func (e *Engine) ReleaseAcceptance(ctx context.Context, providerID, jobID uuid.UUID) (int64, error) {
	now := e.now()
	n, err := e.store.ReleaseNotification(ctx, jobID, providerID, now, now.Add(e.offerTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to release offers for job %s: %w", jobID, err)
	}
	e.logger.InfoWithContextf(ctx, "[Matching] Reopened %d offers for job %s after provider %s fell through", n, jobID, providerID)
	return n, nil
}

// PendingOffers lists the unexpired offers waiting on a provider.
func (e *Engine) PendingOffers(ctx context.Context, providerID uuid.UUID) ([]entity.Notification, error) {
	offers, err := e.store.ListPendingNotifications(ctx, providerID, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for provider %s: %w", providerID, err)
	}
	return offers, nil
}

// SweepExpired marks every lapsed pending offer expired.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	n, err := e.store.ExpireStaleNotifications(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale offers: %w", err)
	}
	return n, nil
}
