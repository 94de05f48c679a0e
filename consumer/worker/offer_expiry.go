package worker

import (
	"context"
	"time"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
)

// OfferSweeper is the slice of the matching engine the sweeper drives
type OfferSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// OfferExpiryWorker periodically closes offers whose window lapsed.
type OfferExpiryWorker struct {
	sweeper  OfferSweeper
	interval time.Duration
	logger   *infra.LoggerClient
}

func NewOfferExpiryWorker(sweeper OfferSweeper, interval time.Duration, logger *infra.LoggerClient) *OfferExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OfferExpiryWorker{sweeper: sweeper, interval: interval, logger: logger}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *OfferExpiryWorker) Start(ctx context.Context) {
	w.logger.InfoWithContextf(ctx, "[Offer Expiry] Sweeping lapsed offers every %s", w.interval)
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.logger.InfoWithContextf(ctx, "[Offer Expiry] Shutting down...")
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *OfferExpiryWorker) sweep(ctx context.Context) {
	n, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.ErrorWithContextf(ctx, err, "[Offer Expiry] Sweep failed")
		return
	}
	if n > 0 {
		w.logger.InfoWithContextf(ctx, "[Offer Expiry] Expired %d offers", n)
	}
}
