package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/graylake-systems/graylake/internal/models"
)

// InMemoryRepository is a mutex-guarded map store. It mirrors every
// constraint the PostgreSQL schema enforces, including the partial unique
// index on open (tenant, dedupe key) pairs, so detection and dedup behavior
// can be tested without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	events  []*models.Event
	alerts  map[string]*models.Alert
	tenants map[string]*models.Tenant
	users   map[string]*models.User
	keys    map[string]*models.APIKey
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts:  make(map[string]*models.Alert),
		tenants: make(map[string]*models.Tenant),
		users:   make(map[string]*models.User),
		keys:    make(map[string]*models.APIKey),
	}
}

func (r *InMemoryRepository) CreateEvent(ctx context.Context, ev *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *ev
	r.events = append(r.events, &cp)
	return nil
}

func (r *InMemoryRepository) ListEvents(ctx context.Context, tenantID string, f *models.EventFilter) ([]*models.Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Event
	for _, ev := range r.events {
		if ev.TenantID != tenantID {
			continue
		}
		if !eventMatches(ev, f) {
			continue
		}
		matched = append(matched, ev)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	return paginate(matched, f.Skip, f.Limit), total, nil
}

func eventMatches(ev *models.Event, f *models.EventFilter) bool {
	if f == nil {
		return true
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if ev.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && ev.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && ev.Timestamp.After(*f.To) {
		return false
	}
	if f.Level != "" && ev.Level != f.Level {
		return false
	}
	if f.Source != "" && ev.Source != f.Source {
		return false
	}
	if f.EventType != "" && ev.EventType != f.EventType {
		return false
	}
	if f.IP != "" && ev.IP != f.IP {
		return false
	}
	if f.User != "" && ev.User != f.User {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(ev.Message), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

func (r *InMemoryRepository) RecentEventsByIP(ctx context.Context, tenantID, eventType, ip string, since time.Time, limit int) ([]*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Event
	for _, ev := range r.events {
		if ev.TenantID != tenantID || ev.EventType != eventType || ev.IP != ip {
			continue
		}
		if ev.Timestamp.Before(since) {
			continue
		}
		matched = append(matched, ev)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *InMemoryRepository) CreateAlert(ctx context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.DedupeKey != "" && a.Status == models.AlertStatusOpen {
		for _, existing := range r.alerts {
			if existing.TenantID == a.TenantID &&
				existing.DedupeKey == a.DedupeKey &&
				existing.Status == models.AlertStatusOpen {
				return ErrDuplicateAlert
			}
		}
	}

	cp := *a
	r.alerts[a.ID] = &cp
	return nil
}

func (r *InMemoryRepository) FindOpenAlertByDedupeKey(ctx context.Context, tenantID, dedupeKey string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.alerts {
		if a.TenantID == tenantID && a.DedupeKey == dedupeKey && a.Status == models.AlertStatusOpen {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAlertNotFound
}

func (r *InMemoryRepository) GetAlertByID(ctx context.Context, tenantID, id string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok || a.TenantID != tenantID {
		return nil, ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) ListAlerts(ctx context.Context, tenantID string, f *models.AlertFilter) ([]*models.Alert, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Alert
	for _, a := range r.alerts {
		if a.TenantID != tenantID {
			continue
		}
		if f != nil {
			if f.Status != "" && a.Status != f.Status {
				continue
			}
			if f.Severity != "" && a.Severity != f.Severity {
				continue
			}
			if f.From != nil && a.Timestamp.Before(*f.From) {
				continue
			}
			if f.To != nil && a.Timestamp.After(*f.To) {
				continue
			}
			if f.Query != "" && !strings.Contains(strings.ToLower(a.Description), strings.ToLower(f.Query)) {
				continue
			}
		}
		cp := *a
		matched = append(matched, &cp)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	skip, limit := 0, 0
	if f != nil {
		skip, limit = f.Skip, f.Limit
	}
	return paginate(matched, skip, limit), total, nil
}

func (r *InMemoryRepository) SetAlertStatus(ctx context.Context, tenantID, id, status, actorID string) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok || a.TenantID != tenantID {
		return nil, ErrAlertNotFound
	}

	// Reopening re-enters the open-dedupe index; refuse when another open
	// alert already holds the key.
	if status == models.AlertStatusOpen && a.DedupeKey != "" {
		for _, other := range r.alerts {
			if other.ID != a.ID && other.TenantID == a.TenantID &&
				other.DedupeKey == a.DedupeKey &&
				other.Status == models.AlertStatusOpen {
				return nil, ErrDuplicateAlert
			}
		}
	}

	now := time.Now().UTC()
	if status == models.AlertStatusClosed {
		// Stamps stay stable when the alert is already closed.
		if a.ClosedAt == nil {
			a.ClosedAt = &now
			actor := actorID
			a.ClosedBy = &actor
		}
	} else {
		a.ClosedAt = nil
		a.ClosedBy = nil
	}
	a.Status = status
	a.UpdatedAt = &now

	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) CreateTenant(ctx context.Context, t *models.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *t
	r.tenants[t.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrUserExists
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryRepository) ListUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []*models.User
	for _, u := range r.users {
		if u.TenantID != tenantID {
			continue
		}
		cp := *u
		users = append(users, &cp)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *InMemoryRepository) UpdateUserRole(ctx context.Context, tenantID, id, role string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, ErrUserNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func (r *InMemoryRepository) DeleteUser(ctx context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.TenantID != tenantID {
		return ErrUserNotFound
	}
	delete(r.users, u.ID)
	return nil
}

func (r *InMemoryRepository) CountAdmins(ctx context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, u := range r.users {
		if u.TenantID == tenantID && u.Role == models.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *k
	r.keys[k.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetAPIKeyByDigest(ctx context.Context, digest string) (*models.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.keys {
		if k.KeyDigest == digest {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrAPIKeyNotFound
}

func (r *InMemoryRepository) ListAPIKeys(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []*models.APIKey
	for _, k := range r.keys {
		if k.TenantID != tenantID {
			continue
		}
		cp := *k
		keys = append(keys, &cp)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (r *InMemoryRepository) RevokeAPIKey(ctx context.Context, tenantID, id string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[id]
	if !ok || k.TenantID != tenantID {
		return nil, ErrAPIKeyNotFound
	}
	k.Enabled = false
	cp := *k
	return &cp, nil
}

func (r *InMemoryRepository) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keys[id]
	if !ok {
		return ErrAPIKeyNotFound
	}
	t := usedAt
	k.LastUsed = &t
	return nil
}

func (r *InMemoryRepository) Stats(ctx context.Context, tenantID string, from, to time.Time) (*models.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.Stats{
		Range:   models.StatsRange{From: from, To: to},
		ByLevel: map[string]int{},
	}

	ipCounts := map[string]int{}
	typeCounts := map[string]int{}
	var inRange []*models.Event
	for _, ev := range r.events {
		if ev.TenantID != tenantID || ev.Timestamp.Before(from) || ev.Timestamp.After(to) {
			continue
		}
		inRange = append(inRange, ev)
		stats.TotalEvents++
		stats.ByLevel[ev.Level]++
		if ev.IP != "" {
			ipCounts[ev.IP]++
		}
		typeCounts[ev.EventType]++
	}

	stats.TopIPs = topBuckets(ipCounts, 10)
	stats.TopEventTypes = topBuckets(typeCounts, 10)

	sort.SliceStable(inRange, func(i, j int) bool {
		return inRange[i].Timestamp.After(inRange[j].Timestamp)
	})
	stats.RecentEvents = paginate(inRange, 0, 10)

	var alerts []*models.Alert
	for _, a := range r.alerts {
		if a.TenantID != tenantID {
			continue
		}
		if a.Status == models.AlertStatusOpen {
			stats.OpenAlerts++
		}
		if a.Timestamp.Before(from) || a.Timestamp.After(to) {
			continue
		}
		cp := *a
		alerts = append(alerts, &cp)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	stats.RecentAlerts = paginate(alerts, 0, 10)

	return stats, nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *InMemoryRepository) Close() error { return nil }

func topBuckets(counts map[string]int, n int) []models.CountBucket {
	buckets := make([]models.CountBucket, 0, len(counts))
	for v, c := range counts {
		buckets = append(buckets, models.CountBucket{Value: v, Count: c})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	if len(buckets) > n {
		buckets = buckets[:n]
	}
	return buckets
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
