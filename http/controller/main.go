package controller

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra/produce"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/matching"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/orchestrator"
)

// EvidenceStorage keeps the media of on-site captures
type EvidenceStorage interface {
	PutEvidence(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	RemoveEvidence(ctx context.Context, objectKey string) error
	PresignedEvidenceURL(ctx context.Context, objectKey string, expiry time.Duration) (*url.URL, error)
}

type PaymentPublisher interface {
	PublishPaymentEvent(ctx context.Context, event produce.PaymentEvent) error
}

// HealthCheck reports whether one backing service is reachable
type HealthCheck func(ctx context.Context) error

type Services struct {
	Sessions *orchestrator.Manager
	Jobs     *jobs.Repository
	Matching *matching.Engine
	Evidence EvidenceStorage
	Payments PaymentPublisher
	Checks   map[string]HealthCheck
}

type Controller struct {
	Config *config.Config
	Logger *infra.LoggerClient
	Services
}

func NewController(cfg *config.Config, logger *infra.LoggerClient, services Services) *Controller {
	if services.Sessions == nil || services.Jobs == nil {
		panic("Failed to initialize booking services")
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Controller{
		Config:   cfg,
		Logger:   logger,
		Services: services,
	}
}
