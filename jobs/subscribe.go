package jobs

import (
	"sync"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

// Subscribe returns a channel that receives the job after each local change.
// The channel holds one value and a slow reader only sees the latest state.
// The returned func unsubscribes and closes the channel; calling it again is safe.
func (r *Repository) Subscribe(id uuid.UUID) (<-chan *entity.Job, func()) {
	ch := make(chan *entity.Job, 1)

	r.mu.Lock()
	r.nextSub++
	key := r.nextSub
	if r.subs[id] == nil {
		r.subs[id] = make(map[uint64]chan *entity.Job)
	}
	r.subs[id][key] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs[id], key)
			if len(r.subs[id]) == 0 {
				delete(r.subs, id)
			}
			close(ch)
		})
	}
}

func (r *Repository) subscriberCount(id uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[id])
}

// notifyLocked must run with r.mu held for writing so no channel closes mid-send.
func (r *Repository) notifyLocked(job *entity.Job) {
	for _, ch := range r.subs[job.ID] {
		deliver(ch, job.Clone())
	}
}

func deliver(ch chan *entity.Job, job *entity.Job) {
	select {
	case ch <- job:
		return
	default:
	}
	// drop the stale value the reader has not picked up yet
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- job:
	default:
	}
}
