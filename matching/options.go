package matching

import (
	"time"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Option func(e *Engine, meter *metric.Meter)

func WithLogger(l *infra.LoggerClient) Option {
	return func(e *Engine, _ *metric.Meter) { e.logger = l }
}

func WithOfferPublisher(p OfferPublisher) Option {
	return func(e *Engine, _ *metric.Meter) { e.offers = p }
}

func WithMeter(m metric.Meter) Option {
	return func(_ *Engine, meter *metric.Meter) { *meter = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine, _ *metric.Meter) { e.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine, _ *metric.Meter) { e.now = now }
}

// WithConfig applies the matching and offer settings.
func WithConfig(cfg *config.EnvConfig) Option {
	return func(e *Engine, _ *metric.Meter) {
		if cfg.Matching.MaxDistanceKm > 0 {
			e.maxDistanceKm = cfg.Matching.MaxDistanceKm
		}
		if cfg.Matching.DefaultRadiusKm > 0 {
			e.defaultRadiusKm = cfg.Matching.DefaultRadiusKm
		}
		e.maxNotified = cfg.Matching.MaxNotifiedPerJob
		if cfg.Offers.Expiry > 0 {
			e.offerTTL = cfg.Offers.Expiry
		}
	}
}
