package jobs

import (
	"time"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Option func(*Repository)

func WithLogger(l *infra.LoggerClient) Option {
	return func(r *Repository) { r.logger = l }
}

// WithPublisher sets the remote change feed producer.
func WithPublisher(p ChangePublisher) Option {
	return func(r *Repository) { r.publisher = p }
}

func WithMeter(m metric.Meter) Option {
	return func(r *Repository) { r.meter = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Repository) { r.tracer = t }
}

// WithClock overrides time.Now, used by tests to pin milestone timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithCodeGenerator overrides the security code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(r *Repository) { r.newCode = gen }
}
