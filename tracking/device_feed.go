package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"golang.org/x/time/rate"
)

const defaultAcquisitionTimeout = 15 * time.Second

var ErrRateLimited = errors.New("position fix rate exceeded")

// DeviceFeed is the Source for fixes reported by provider devices over the
// API. Each provider gets its own token bucket.
type DeviceFeed struct {
	limit   rate.Limit
	burst   int
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	watchers map[uuid.UUID]map[*Stream]struct{}
	limiters map[uuid.UUID]*rate.Limiter
}

// NewDeviceFeed builds a feed accepting fixesPerSecond fixes per provider with
// the given burst. A non-positive rate disables limiting.
func NewDeviceFeed(fixesPerSecond float64, burst int, acquisitionTimeout time.Duration) *DeviceFeed {
	limit := rate.Inf
	if fixesPerSecond > 0 {
		limit = rate.Limit(fixesPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	if acquisitionTimeout <= 0 {
		acquisitionTimeout = defaultAcquisitionTimeout
	}
	return &DeviceFeed{
		limit:    limit,
		burst:    burst,
		timeout:  acquisitionTimeout,
		now:      time.Now,
		watchers: make(map[uuid.UUID]map[*Stream]struct{}),
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
}

func (f *DeviceFeed) Watch(ctx context.Context, opts WatchOptions) (*Stream, error) {
	if opts.ProviderID == uuid.Nil {
		return nil, errors.New("watch requires a provider id")
	}
	timeout := opts.AcquisitionTimeout
	if timeout <= 0 {
		timeout = f.timeout
	}

	var s *Stream
	s = newStream(func() { f.remove(opts.ProviderID, s) })

	f.mu.Lock()
	if f.watchers[opts.ProviderID] == nil {
		f.watchers[opts.ProviderID] = make(map[*Stream]struct{})
	}
	f.watchers[opts.ProviderID][s] = struct{}{}
	f.mu.Unlock()

	go f.watchdog(ctx, s, timeout)
	return s, nil
}

// watchdog raises a timeout error whenever no fix arrives within the window.
func (f *DeviceFeed) watchdog(ctx context.Context, s *Stream, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.done:
			return
		case <-s.fix:
			timer.Reset(timeout)
		case <-timer.C:
			s.sendError(&PositionError{Code: Timeout, Message: "no fix within " + timeout.String(), At: f.now()})
			timer.Reset(timeout)
		}
	}
}

// Publish delivers a device fix to every watch of the provider. A fix for a
// provider nobody watches is dropped.
func (f *DeviceFeed) Publish(providerID uuid.UUID, pos entity.Position) error {
	l := f.limiter(providerID)
	if l == nil {
		return nil
	}
	if !l.Allow() {
		return ErrRateLimited
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = f.now().UTC()
	}
	for _, s := range f.streams(providerID) {
		s.sendPosition(pos)
	}
	return nil
}

// Report delivers a device-side read failure to every watch of the provider.
func (f *DeviceFeed) Report(providerID uuid.UUID, code ErrorCode, message string) {
	if !code.Valid() {
		code = PositionUnavailable
	}
	err := &PositionError{Code: code, Message: message, At: f.now()}
	for _, s := range f.streams(providerID) {
		s.sendError(err)
	}
}

func (f *DeviceFeed) Watching(providerID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers[providerID]) > 0
}

// limiter lives as long as the provider has a watch; nil when it has none.
func (f *DeviceFeed) limiter(providerID uuid.UUID) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.watchers[providerID]) == 0 {
		return nil
	}
	l, ok := f.limiters[providerID]
	if !ok {
		l = rate.NewLimiter(f.limit, f.burst)
		f.limiters[providerID] = l
	}
	return l
}

func (f *DeviceFeed) streams(providerID uuid.UUID) []*Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Stream, 0, len(f.watchers[providerID]))
	for s := range f.watchers[providerID] {
		out = append(out, s)
	}
	return out
}

func (f *DeviceFeed) remove(providerID uuid.UUID, s *Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watchers[providerID], s)
	if len(f.watchers[providerID]) == 0 {
		delete(f.watchers, providerID)
		delete(f.limiters, providerID)
	}
}
