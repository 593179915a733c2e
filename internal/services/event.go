package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ticketinventory/internal/clock"
	"ticketinventory/internal/domain"
)

type eventService struct {
	eventRepo       domain.EventRepository
	reservationRepo domain.ReservationRepository
	locker          domain.InventoryLocker
	clock           clock.Clock
	logger          *slog.Logger
	retry           retrier
	contextTimeout  time.Duration
}

// NewEventService returns the event catalog. Every write that touches an event row runs
// inside the event's atomic unit so it cannot interleave with an admission decision.
func NewEventService(eventRepo domain.EventRepository,
	reservationRepo domain.ReservationRepository,
	locker domain.InventoryLocker,
	clk clock.Clock,
	metrics domain.MetricsRecorder,
	logger *slog.Logger,
	maxRetries int,
	timeout time.Duration,
) domain.EventService {
	logger = orDefaultLogger(logger)
	return &eventService{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		locker:          locker,
		clock:           clk,
		logger:          logger,
		retry:           retrier{attempts: maxRetries, metrics: orNopMetrics(metrics), logger: logger},
		contextTimeout:  timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event == nil {
		return fmt.Errorf("%w: event is required", domain.ErrValidation)
	}
	event.Name = strings.TrimSpace(event.Name)
	if err := validateEvent(event); err != nil {
		return err
	}
	if err := s.ensureNameFree(ctx, event.Name, ""); err != nil {
		return err
	}

	now := s.clock.Now()
	event.Retired = false
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%w: event name %q already exists", domain.ErrConflict, event.Name)
		}
		return fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", event.ID, "name", event.Name, "capacity", event.Capacity)
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter.Query = strings.TrimSpace(filter.Query)
	filter.Category = strings.TrimSpace(filter.Category)
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
		}
		patch.Name = &name
	}

	var updated *domain.Event
	err := s.mutate(ctx, "update_event", eventID, func(txCtx context.Context, event *domain.Event) error {
		if patch.Name != nil && *patch.Name != event.Name {
			if err := s.ensureNameFree(txCtx, *patch.Name, event.ID); err != nil {
				return err
			}
			event.Name = *patch.Name
		}
		if patch.StartDate != nil {
			event.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			event.EndDate = *patch.EndDate
		}
		if event.StartDate.After(event.EndDate) {
			return fmt.Errorf("%w: start_date must not be after end_date", domain.ErrValidation)
		}
		if patch.Venue != nil {
			event.Venue = strings.TrimSpace(*patch.Venue)
		}
		if patch.Description != nil {
			event.Description = *patch.Description
		}
		if patch.Category != nil {
			event.Category = strings.TrimSpace(*patch.Category)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *eventService) UpdateCapacity(ctx context.Context, eventID string, capacity int) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", domain.ErrValidation)
	}

	var updated *domain.Event
	err := s.mutate(ctx, "update_capacity", eventID, func(txCtx context.Context, event *domain.Event) error {
		booked, err := s.reservationRepo.SumQuantityByEventAndStatus(txCtx, eventID, domain.ReservationStatusBooked)
		if err != nil {
			return fmt.Errorf("sum booked: %w", err)
		}
		if capacity < booked {
			return fmt.Errorf("%w: %d tickets are booked, capacity %d requested", domain.ErrCapacityTooLow, booked, capacity)
		}
		event.Capacity = capacity
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event capacity updated", "event_id", eventID, "capacity", capacity)
	return updated, nil
}

func (s *eventService) RetireEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var retired *domain.Event
	err := s.mutate(ctx, "retire_event", eventID, func(txCtx context.Context, event *domain.Event) error {
		retired = event
		if event.Retired {
			return errUnchanged
		}
		event.Retired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event retired", "event_id", eventID)
	return retired, nil
}

// errUnchanged lets a mutation skip the write without failing the call.
var errUnchanged = errors.New("unchanged")

// mutate reloads the event inside its atomic unit, applies fn and writes the result back.
func (s *eventService) mutate(ctx context.Context, op, eventID string, fn func(txCtx context.Context, event *domain.Event) error) error {
	return s.retry.do(ctx, op, func() error {
		err := s.locker.WithEventLock(ctx, eventID, func(txCtx context.Context) error {
			event, err := s.eventRepo.GetByID(txCtx, eventID)
			if err != nil {
				return err
			}
			if err := fn(txCtx, event); err != nil {
				return err
			}
			event.UpdatedAt = s.clock.Now()
			return s.eventRepo.Update(txCtx, event)
		})
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	})
}

func (s *eventService) ensureNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.eventRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check event name: %w", err)
	}
	if existing.ID != exceptID {
		return fmt.Errorf("%w: event name %q already exists", domain.ErrConflict, name)
	}
	return nil
}

func validateEvent(e *domain.Event) error {
	var problems []string
	if e.Name == "" {
		problems = append(problems, "name is required")
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		problems = append(problems, "start_date and end_date are required")
	} else if e.StartDate.After(e.EndDate) {
		problems = append(problems, "start_date must not be after end_date")
	}
	if e.Capacity < 1 {
		problems = append(problems, "capacity must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
