package memory

import (
	"context"
	"sort"
	"time"

	"ticketinventory/internal/domain"
)

type reservationRepository struct {
	store *Store
}

func NewReservationRepository(store *Store) domain.ReservationRepository {
	return &reservationRepository{store: store}
}

func (r *reservationRepository) Insert(ctx context.Context, res *domain.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.events[res.EventID]; !ok {
		return domain.ErrNotFound
	}
	res.ID = r.store.newID()
	r.store.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneReservation(res), nil
}

func (r *reservationRepository) SetStatus(ctx context.Context, id string, status domain.ReservationStatus, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	res.Status = status
	res.CancelledAt = nil
	if status == domain.ReservationStatusCancelled {
		res.CancelledAt = &at
	}
	return nil
}

func (r *reservationRepository) SumQuantityByEventAndStatus(ctx context.Context, eventID string, status domain.ReservationStatus) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	total := 0
	for _, res := range r.store.reservations {
		if res.EventID == eventID && res.Status == status {
			total += res.Quantity
		}
	}
	return total, nil
}

func (r *reservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, int, error) {
	r.store.mu.RLock()
	matched := make([]*domain.Reservation, 0)
	for _, res := range r.store.reservations {
		if filter.UserID != "" && res.UserID != filter.UserID {
			continue
		}
		if filter.EventID != "" && res.EventID != filter.EventID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneReservation(res))
	}
	r.store.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	start, end := filter.Pagination.Bounds(len(matched))
	return matched[start:end], len(matched), nil
}
