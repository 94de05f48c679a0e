// Package feed fans remote job change events out to in-process listeners
// keyed by job id.
package feed

import (
	"sync"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

// Hub delivers each change to every subscriber of its job. A subscriber that
// falls behind only keeps the newest change; delivery is a wake-up signal and
// receivers re-read the job anyway.
type Hub struct {
	mu   sync.Mutex
	next uint64
	subs map[uuid.UUID]map[uint64]chan entity.JobChange
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[uint64]chan entity.JobChange)}
}

func (h *Hub) Subscribe(jobID uuid.UUID) (<-chan entity.JobChange, func()) {
	ch := make(chan entity.JobChange, 1)

	h.mu.Lock()
	h.next++
	key := h.next
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[uint64]chan entity.JobChange)
	}
	h.subs[jobID][key] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[jobID], key)
			if len(h.subs[jobID]) == 0 {
				delete(h.subs, jobID)
			}
			close(ch)
		})
	}
}

// Publish returns the number of subscribers the change was handed to.
func (h *Hub) Publish(change entity.JobChange) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[change.JobID]
	for _, ch := range subs {
		select {
		case ch <- change:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- change:
		default:
		}
	}
	return len(subs)
}

func (h *Hub) Subscribers(jobID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[jobID])
}
