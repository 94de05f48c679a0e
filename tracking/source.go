// Package tracking streams provider positions while a job is travelling and
// pushes them to the job on a fixed interval.
package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

type ErrorCode string

const (
	PermissionDenied    ErrorCode = "permission_denied"
	PositionUnavailable ErrorCode = "position_unavailable"
	Timeout             ErrorCode = "timeout"
)

func (c ErrorCode) Valid() bool {
	return c == PermissionDenied || c == PositionUnavailable || c == Timeout
}

// PositionError is a classified read failure. It never ends a watch.
type PositionError struct {
	Code    ErrorCode
	Message string
	At      time.Time
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("position error: %s", e.Code)
	}
	return fmt.Sprintf("position error: %s: %s", e.Code, e.Message)
}

type WatchOptions struct {
	ProviderID uuid.UUID
	// AcquisitionTimeout bounds the wait for each fix before a timeout error is raised
	AcquisitionTimeout time.Duration
}

// Source starts position watches
type Source interface {
	Watch(ctx context.Context, opts WatchOptions) (*Stream, error)
}

// Stream is one live watch. Positions and Errors keep only the newest
// undelivered value. Both channels stay open; Done closes on Stop.
type Stream struct {
	positions chan entity.Position
	errs      chan *PositionError
	fix       chan struct{}
	done      chan struct{}

	mu      sync.Mutex
	stopped bool
	once    sync.Once
	onStop  func()
}

func newStream(onStop func()) *Stream {
	return &Stream{
		positions: make(chan entity.Position, 1),
		errs:      make(chan *PositionError, 1),
		fix:       make(chan struct{}, 1),
		done:      make(chan struct{}),
		onStop:    onStop,
	}
}

func (s *Stream) Positions() <-chan entity.Position { return s.positions }

func (s *Stream) Errors() <-chan *PositionError { return s.errs }

func (s *Stream) Done() <-chan struct{} { return s.done }

// Stop ends the watch. Safe to call more than once.
func (s *Stream) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.done)
		s.mu.Unlock()
		if s.onStop != nil {
			s.onStop()
		}
	})
}

func (s *Stream) sendPosition(pos entity.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	replaceLatest(s.positions, pos)
	select {
	case s.fix <- struct{}{}:
	default:
	}
}

func (s *Stream) sendError(err *PositionError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	replaceLatest(s.errs, err)
}

// replaceLatest puts v into a one-slot channel, discarding any unread value.
func replaceLatest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
