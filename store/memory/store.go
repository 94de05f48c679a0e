package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/store"
)

var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	jobs          map[uuid.UUID]*entity.Job
	logs          map[uuid.UUID][]entity.JobLog
	notifications map[uuid.UUID]*entity.Notification
	providers     map[uuid.UUID]*entity.Provider
	clients       map[uuid.UUID]*entity.Client
	evidence      map[uuid.UUID][]entity.Evidence

	// insertion order keeps provider listings deterministic
	providerOrder []uuid.UUID
}

func New() *Store {
	return &Store{
		jobs:          make(map[uuid.UUID]*entity.Job),
		logs:          make(map[uuid.UUID][]entity.JobLog),
		notifications: make(map[uuid.UUID]*entity.Notification),
		providers:     make(map[uuid.UUID]*entity.Provider),
		clients:       make(map[uuid.UUID]*entity.Client),
		evidence:      make(map[uuid.UUID][]entity.Evidence),
	}
}

func (m *Store) Migrate(_ context.Context) error { return nil }

func (m *Store) Ping(_ context.Context) error { return nil }

// PutProvider seeds or replaces a provider.
func (m *Store) PutProvider(p entity.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[p.ID]; !ok {
		m.providerOrder = append(m.providerOrder, p.ID)
	}
	m.providers[p.ID] = &p
}

// PutClient seeds or replaces a client.
func (m *Store) PutClient(c entity.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = &c
}

// PutJob writes a job row directly, bypassing every check.
func (m *Store) PutJob(j *entity.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = stripSummaries(j)
}

// ──────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────

func (m *Store) CreateJob(_ context.Context, j *entity.Job, log *entity.JobLog) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[j.ID]; exists {
		return nil, store.ErrConflict
	}
	if m.activeForClientLocked(j.ClientID, j.ID) != nil {
		return nil, store.ErrConflict
	}
	m.jobs[j.ID] = stripSummaries(j)
	m.appendLogLocked(log)
	return m.viewLocked(m.jobs[j.ID]), nil
}

func (m *Store) GetJob(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.viewLocked(j), nil
}

func (m *Store) LatestActiveJobForClient(_ context.Context, clientID uuid.UUID) (*entity.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if j := m.activeForClientLocked(clientID, uuid.Nil); j != nil {
		return m.viewLocked(j), nil
	}
	return nil, store.ErrNotFound
}

func (m *Store) LatestActiveJobForProvider(_ context.Context, providerID uuid.UUID) (*entity.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if j := m.activeForProviderLocked(providerID, uuid.Nil); j != nil {
		return m.viewLocked(j), nil
	}
	return nil, store.ErrNotFound
}

func (m *Store) UpdateJob(_ context.Context, j *entity.Job, expected entity.JobStatus, log *entity.JobLog) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.jobs[j.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if cur.Status != expected || cur.Version != j.Version {
		return nil, store.ErrConflict
	}
	if j.ProviderID != nil && !j.Status.IsTerminal() && m.activeForProviderLocked(*j.ProviderID, j.ID) != nil {
		return nil, store.ErrConflict
	}

	next := stripSummaries(j)
	// the trail is only written by AppendBreadcrumb
	trail := cur.Clone()
	next.Breadcrumbs = trail.Breadcrumbs
	next.ProviderLocation = trail.ProviderLocation
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.jobs[j.ID] = next
	m.appendLogLocked(log)
	return m.viewLocked(next), nil
}

func (m *Store) AppendBreadcrumb(_ context.Context, jobID uuid.UUID, b entity.Breadcrumb, log *entity.JobLog) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := cur.Clone()
	next.AppendBreadcrumb(b)
	next.UpdatedAt = time.Now().UTC()
	m.jobs[jobID] = next
	m.appendLogLocked(log)
	return m.viewLocked(next), nil
}

func (m *Store) AppendLog(_ context.Context, log *entity.JobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[log.JobID]; !ok {
		return store.ErrNotFound
	}
	m.appendLogLocked(log)
	return nil
}

func (m *Store) ListLogs(_ context.Context, jobID uuid.UUID) ([]entity.JobLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := m.logs[jobID]
	out := make([]entity.JobLog, len(logs))
	copy(out, logs)
	return out, nil
}

// ──────────────────────────────────────────────────
// Notifications
// ──────────────────────────────────────────────────

func (m *Store) CreateNotifications(_ context.Context, notifications []entity.Notification) ([]entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := make([]entity.Notification, 0, len(notifications))
	for _, n := range notifications {
		if existing := m.findNotificationLocked(n.JobID, n.ProviderID); existing != nil {
			if existing.Status != entity.NotificationExpired {
				continue
			}
			existing.Status = entity.NotificationPending
			existing.DistanceKm = n.DistanceKm
			existing.EtaMinutes = n.EtaMinutes
			existing.CreatedAt = n.CreatedAt
			existing.ExpiresAt = n.ExpiresAt
			created = append(created, *existing)
			continue
		}
		cp := n
		m.notifications[n.ID] = &cp
		created = append(created, n)
	}
	return created, nil
}

func (m *Store) AcceptNotification(_ context.Context, jobID, providerID uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.findNotificationLocked(jobID, providerID)
	if n == nil || n.Status != entity.NotificationPending || n.ExpiredAt(now) {
		return false, nil
	}
	n.Status = entity.NotificationAccepted
	for _, other := range m.notifications {
		if other.JobID == jobID && other.ID != n.ID && other.Status == entity.NotificationPending {
			other.Status = entity.NotificationExpired
		}
	}
	return true, nil
}

func (m *Store) DeclineNotification(_ context.Context, jobID, providerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.findNotificationLocked(jobID, providerID)
	if n == nil || n.Status != entity.NotificationPending {
		return false, nil
	}
	n.Status = entity.NotificationDeclined
	return true, nil
}

func (m *Store) ExpireNotification(_ context.Context, jobID, providerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.findNotificationLocked(jobID, providerID)
	if n == nil {
		return store.ErrNotFound
	}
	if n.Status != entity.NotificationAccepted {
		n.Status = entity.NotificationExpired
	}
	return nil
}

func (m *Store) ReleaseNotification(_ context.Context, jobID, providerID uuid.UUID, now, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reopened int64
	for _, n := range m.notifications {
		if n.JobID != jobID {
			continue
		}
		switch {
		case n.ProviderID == providerID:
			n.Status = entity.NotificationExpired
		case n.Status == entity.NotificationExpired:
			n.Status = entity.NotificationPending
			n.CreatedAt = now
			n.ExpiresAt = expiresAt
			reopened++
		}
	}
	return reopened, nil
}

func (m *Store) ExpirePendingNotifications(_ context.Context, jobID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, notif := range m.notifications {
		if notif.JobID == jobID && notif.Status == entity.NotificationPending {
			notif.Status = entity.NotificationExpired
			n++
		}
	}
	return n, nil
}

func (m *Store) ExpireStaleNotifications(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, notif := range m.notifications {
		if notif.Status == entity.NotificationPending && notif.ExpiredAt(now) {
			notif.Status = entity.NotificationExpired
			n++
		}
	}
	return n, nil
}

func (m *Store) ListPendingNotifications(_ context.Context, providerID uuid.UUID, now time.Time) ([]entity.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.Notification
	for _, n := range m.notifications {
		if n.ProviderID == providerID && n.Status == entity.NotificationPending && !n.ExpiredAt(now) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out, nil
}

// ──────────────────────────────────────────────────
// Providers and clients
// ──────────────────────────────────────────────────

func (m *Store) ListAvailableProviders(_ context.Context, category string) ([]entity.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.Provider
	for _, id := range m.providerOrder {
		p := m.providers[id]
		if p.Category == category && p.Verified && p.Available {
			out = append(out, copyProvider(p))
		}
	}
	return out, nil
}

func (m *Store) GetProvider(_ context.Context, id uuid.UUID) (*entity.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copyProvider(p)
	return &cp, nil
}

func (m *Store) UpdateProviderLocation(_ context.Context, id uuid.UUID, latitude, longitude float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.providers[id]
	if !ok {
		return store.ErrNotFound
	}
	lat, lng, ts := latitude, longitude, at
	p.Latitude = &lat
	p.Longitude = &lng
	p.LocationUpdatedAt = &ts
	return nil
}

func (m *Store) GetClient(_ context.Context, id uuid.UUID) (*entity.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ──────────────────────────────────────────────────
// Evidence
// ──────────────────────────────────────────────────

func (m *Store) CreateEvidence(_ context.Context, ev *entity.Evidence, log *entity.JobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[ev.JobID]; !ok {
		return store.ErrNotFound
	}
	m.evidence[ev.JobID] = append(m.evidence[ev.JobID], *ev)
	m.appendLogLocked(log)
	return nil
}

func (m *Store) CountEvidence(_ context.Context, jobID uuid.UUID, kind entity.EvidenceKind) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, ev := range m.evidence[jobID] {
		if ev.Kind == kind {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// helpers, callers hold m.mu
// ──────────────────────────────────────────────────

func (m *Store) appendLogLocked(log *entity.JobLog) {
	if log == nil {
		return
	}
	m.logs[log.JobID] = append(m.logs[log.JobID], *log)
}

func (m *Store) activeForClientLocked(clientID, except uuid.UUID) *entity.Job {
	var latest *entity.Job
	for _, j := range m.jobs {
		if j.ClientID != clientID || j.ID == except || j.IsTerminal() {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	return latest
}

func (m *Store) activeForProviderLocked(providerID, except uuid.UUID) *entity.Job {
	var latest *entity.Job
	for _, j := range m.jobs {
		if j.ProviderID == nil || *j.ProviderID != providerID || j.ID == except || j.IsTerminal() {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	return latest
}

func (m *Store) findNotificationLocked(jobID, providerID uuid.UUID) *entity.Notification {
	for _, n := range m.notifications {
		if n.JobID == jobID && n.ProviderID == providerID {
			return n
		}
	}
	return nil
}

// viewLocked returns a copy of the stored row with summaries joined.
func (m *Store) viewLocked(j *entity.Job) *entity.Job {
	cp := j.Clone()
	if c, ok := m.clients[j.ClientID]; ok {
		s := c.Summary()
		cp.Client = &s
	}
	if j.ProviderID != nil {
		if p, ok := m.providers[*j.ProviderID]; ok {
			s := p.Summary()
			cp.Provider = &s
		}
	}
	return cp
}

func stripSummaries(j *entity.Job) *entity.Job {
	cp := j.Clone()
	cp.Client = nil
	cp.Provider = nil
	return cp
}

func copyProvider(p *entity.Provider) entity.Provider {
	cp := *p
	if p.Latitude != nil {
		lat := *p.Latitude
		cp.Latitude = &lat
	}
	if p.Longitude != nil {
		lng := *p.Longitude
		cp.Longitude = &lng
	}
	if p.LocationUpdatedAt != nil {
		ts := *p.LocationUpdatedAt
		cp.LocationUpdatedAt = &ts
	}
	return cp
}
