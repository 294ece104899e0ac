package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

// MemoryRepo is an in-process Repo used in tests and for ephemeral runs.
type MemoryRepo struct {
	mu         sync.RWMutex
	users      map[int64]*domain.User
	categories []domain.Category
	events     map[int64]*domain.Event
	nextCatID  int64
	nextEvtID  int64
}

// NewMemoryRepo creates an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:  make(map[int64]*domain.User),
		events: make(map[int64]*domain.Event),
	}
}

func (m *MemoryRepo) Close() error { return nil }

func (m *MemoryRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	cp.Active = true
	if old, ok := m.users[u.ID]; ok {
		cp.RegisteredAt = old.RegisteredAt
	} else if cp.RegisteredAt.IsZero() {
		cp.RegisteredAt = time.Now().UTC()
	}
	m.users[u.ID] = &cp
	u.Active = true
	return nil
}

func (m *MemoryRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = active
	return nil
}

func (m *MemoryRepo) ListCategories(_ context.Context, ownerID int64) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned, global []domain.Category
	for _, c := range m.categories {
		switch c.OwnerID {
		case ownerID:
			owned = append(owned, c)
		case domain.GlobalOwnerID:
			global = append(global, c)
		}
	}
	return append(owned, global...), nil
}

func (m *MemoryRepo) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.categories {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRepo) CreateCategory(_ context.Context, ownerID int64, name string) (domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.OwnerID == ownerID && c.Name == name {
			return c, nil
		}
	}
	m.nextCatID++
	c := domain.Category{ID: m.nextCatID, OwnerID: ownerID, Name: name}
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *MemoryRepo) CreateEvent(_ context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEvtID++
	e.ID = m.nextEvtID
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *MemoryRepo) DeleteEvent(_ context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok || e.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryRepo) CountEvents(_ context.Context, ownerID int64) (int, error) {
	return len(m.filter(func(e *domain.Event) bool { return e.OwnerID == ownerID })), nil
}

func (m *MemoryRepo) CountUpcoming(_ context.Context, ownerID int64, from string) (int, error) {
	return len(m.filter(func(e *domain.Event) bool { return e.OwnerID == ownerID && e.DueAt >= from })), nil
}

func (m *MemoryRepo) ListUpcoming(_ context.Context, ownerID int64, from string, limit, offset int) ([]domain.Event, error) {
	all := m.filter(func(e *domain.Event) bool { return e.OwnerID == ownerID && e.DueAt >= from })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemoryRepo) ListByCategory(_ context.Context, ownerID int64, category string) ([]domain.Event, error) {
	return m.filter(func(e *domain.Event) bool {
		return e.OwnerID == ownerID && e.Category != nil && *e.Category == category
	}), nil
}

func (m *MemoryRepo) ListEvents(_ context.Context, ownerID int64) ([]domain.Event, error) {
	return m.filter(func(e *domain.Event) bool { return e.OwnerID == ownerID }), nil
}

func (m *MemoryRepo) ListDue(_ context.Context, due string) ([]domain.Event, error) {
	return m.filter(func(e *domain.Event) bool { return e.DueAt == due && !e.Delivered }), nil
}

func (m *MemoryRepo) SetDue(_ context.Context, id int64, due string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.events[id]; ok {
		e.DueAt = due
	}
	return nil
}

func (m *MemoryRepo) MarkDelivered(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.events[id]; ok {
		e.Delivered = true
	}
	return nil
}

func (m *MemoryRepo) Stats(_ context.Context) (domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := domain.Stats{Users: len(m.users), Events: len(m.events), Categories: len(m.categories)}
	for _, u := range m.users {
		if u.Active {
			s.ActiveUsers++
		}
	}
	return s, nil
}

// Event returns a copy of a stored event; handy for assertions.
func (m *MemoryRepo) Event(id int64) (domain.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return domain.Event{}, false
	}
	return *e, true
}

// filter returns copies of matching events ordered by due time, then id.
func (m *MemoryRepo) filter(keep func(*domain.Event) bool) []domain.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []domain.Event
	for _, e := range m.events {
		if keep(e) {
			res = append(res, *e)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].DueAt != res[j].DueAt {
			return res[i].DueAt < res[j].DueAt
		}
		return res[i].ID < res[j].ID
	})
	return res
}
