package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketinventory/internal/domain"
)

type inventoryService struct {
	eventRepo       domain.EventRepository
	reservationRepo domain.ReservationRepository
	contextTimeout  time.Duration
}

// NewInventoryService returns the read-only inventory accountant. Its answers reflect the
// latest committed state and may be stale by the time the caller acts on them.
func NewInventoryService(eventRepo domain.EventRepository, reservationRepo domain.ReservationRepository, timeout time.Duration) domain.InventoryService {
	return newInventoryService(eventRepo, reservationRepo, timeout)
}

func newInventoryService(eventRepo domain.EventRepository, reservationRepo domain.ReservationRepository, timeout time.Duration) *inventoryService {
	return &inventoryService{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		contextTimeout:  timeout,
	}
}

func (s *inventoryService) AvailableCapacity(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.bookableEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	booked, err := s.booked(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return event.Capacity - booked, nil
}

func (s *inventoryService) CanAdmit(ctx context.Context, eventID string, quantity int) (bool, error) {
	available, err := s.AvailableCapacity(ctx, eventID)
	if err != nil {
		return false, err
	}
	return quantity >= 1 && quantity <= available, nil
}

func (s *inventoryService) BookedTotal(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return 0, err
	}
	return s.booked(ctx, eventID)
}

// admit re-validates a reservation of quantity against event. It must run inside the
// event's atomic unit so the Booked sum it reads cannot change before the insert.
func (s *inventoryService) admit(ctx context.Context, event *domain.Event, quantity int) error {
	booked, err := s.booked(ctx, event.ID)
	if err != nil {
		return err
	}
	if available := event.Capacity - booked; quantity > available {
		return fmt.Errorf("%w: requested %d, available %d", domain.ErrCapacityExceeded, quantity, available)
	}
	return nil
}

func (s *inventoryService) booked(ctx context.Context, eventID string) (int, error) {
	total, err := s.reservationRepo.SumQuantityByEventAndStatus(ctx, eventID, domain.ReservationStatusBooked)
	if err != nil {
		return 0, fmt.Errorf("sum booked: %w", err)
	}
	return total, nil
}

func (s *inventoryService) bookableEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.Bookable() {
		return nil, fmt.Errorf("%w: event %s is retired", domain.ErrNotFound, eventID)
	}
	return event, nil
}
