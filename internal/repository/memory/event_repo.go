package memory

import (
	"context"
	"sort"
	"strings"

	"ticketinventory/internal/domain"
)

type eventRepository struct {
	store *Store
}

func NewEventRepository(store *Store) domain.EventRepository {
	return &eventRepository{store: store}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.nameTaken(e.Name, "") {
		return domain.ErrConflict
	}
	e.ID = r.store.newID()
	r.store.events[e.ID] = cloneEvent(e)
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r *eventRepository) GetByName(ctx context.Context, name string) (*domain.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, e := range r.store.events {
		if e.Name == name {
			return cloneEvent(e), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	r.store.mu.RLock()
	matched := make([]*domain.Event, 0, len(r.store.events))
	query := strings.ToLower(filter.Query)
	for _, e := range r.store.events {
		if e.Retired && !filter.IncludeRetired {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
			continue
		}
		matched = append(matched, cloneEvent(e))
	}
	r.store.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].StartDate.Before(matched[j].StartDate)
		}
		return matched[i].Name < matched[j].Name
	})
	start, end := filter.Pagination.Bounds(len(matched))
	return matched[start:end], len(matched), nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.events[e.ID]; !ok {
		return domain.ErrNotFound
	}
	if r.nameTaken(e.Name, e.ID) {
		return domain.ErrConflict
	}
	r.store.events[e.ID] = cloneEvent(e)
	return nil
}

// nameTaken must be called with store.mu held.
func (r *eventRepository) nameTaken(name, exceptID string) bool {
	for id, e := range r.store.events {
		if id != exceptID && e.Name == name {
			return true
		}
	}
	return false
}
