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

const notifyTimeout = 10 * time.Second

type reservationService struct {
	eventRepo       domain.EventRepository
	reservationRepo domain.ReservationRepository
	locker          domain.InventoryLocker
	accountant      *inventoryService
	idempotency     domain.IdempotencyStore
	notifier        domain.Notifier
	metrics         domain.MetricsRecorder
	clock           clock.Clock
	logger          *slog.Logger
	retry           retrier
	contextTimeout  time.Duration
}

// NewReservationService returns the reservation lifecycle controller. idempotency and
// notifier may be nil, which disables replay protection and notifications.
func NewReservationService(eventRepo domain.EventRepository,
	reservationRepo domain.ReservationRepository,
	locker domain.InventoryLocker,
	idempotency domain.IdempotencyStore,
	notifier domain.Notifier,
	metrics domain.MetricsRecorder,
	clk clock.Clock,
	logger *slog.Logger,
	maxRetries int,
	timeout time.Duration,
) domain.ReservationService {
	logger = orDefaultLogger(logger)
	metrics = orNopMetrics(metrics)
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &reservationService{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		locker:          locker,
		accountant:      newInventoryService(eventRepo, reservationRepo, timeout),
		idempotency:     idempotency,
		notifier:        notifier,
		metrics:         metrics,
		clock:           clk,
		logger:          logger,
		retry:           retrier{attempts: maxRetries, metrics: metrics, logger: logger},
		contextTimeout:  timeout,
	}
}

func (s *reservationService) Reserve(ctx context.Context, userID, eventID string, quantity int) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		s.metrics.ObserveReservation(domain.OutcomeRejected)
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if quantity < 1 {
		s.metrics.ObserveReservation(domain.OutcomeRejected)
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if _, err := s.accountant.bookableEvent(ctx, eventID); err != nil {
		s.metrics.ObserveReservation(domain.OutcomeRejected)
		return nil, err
	}

	var (
		created *domain.Reservation
		event   *domain.Event
	)
	err := s.retry.do(ctx, "reserve", func() error {
		return s.locker.WithEventLock(ctx, eventID, func(txCtx context.Context) error {
			defer s.observeCriticalSection("reserve", time.Now())

			current, err := s.eventRepo.GetByID(txCtx, eventID)
			if err != nil {
				return err
			}
			if !current.Bookable() {
				return fmt.Errorf("%w: event %s is retired", domain.ErrNotFound, eventID)
			}
			if err := s.accountant.admit(txCtx, current, quantity); err != nil {
				return err
			}
			res := domain.NewReservation(eventID, userID, quantity, s.clock.Now())
			if err := s.reservationRepo.Insert(txCtx, res); err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
			created, event = res, current
			return nil
		})
	})
	if err != nil {
		s.metrics.ObserveReservation(outcomeFor(err))
		if errors.Is(err, domain.ErrCapacityExceeded) {
			s.logger.Debug("reservation rejected", "event_id", eventID, "user_id", userID, "quantity", quantity, "error", err)
		}
		return nil, err
	}

	s.metrics.ObserveReservation(domain.OutcomeBooked)
	s.logger.Info("reservation booked", "reservation_id", created.ID, "event_id", eventID, "user_id", userID, "quantity", quantity)
	s.notify(ctx, domain.NotificationReservationBooked, created, event)
	return created, nil
}

func (s *reservationService) ReserveIdempotent(ctx context.Context, key, userID, eventID string, quantity int) (*domain.Reservation, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		res, err := s.Reserve(ctx, userID, eventID, quantity)
		return res, false, err
	}

	scoped := userID + ":" + key
	existingID, claimed, err := s.idempotency.Claim(ctx, scoped)
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !claimed {
		if existingID == "" {
			return nil, false, fmt.Errorf("%w: a request with this idempotency key is still in progress", domain.ErrConflict)
		}
		res, err := s.reservationRepo.GetByID(ctx, existingID)
		if err != nil {
			return nil, false, fmt.Errorf("load replayed reservation: %w", err)
		}
		if res.EventID != eventID || res.Quantity != quantity {
			return nil, false, fmt.Errorf("%w: idempotency key was used for a different reservation", domain.ErrConflict)
		}
		s.logger.Debug("reservation replayed", "reservation_id", res.ID, "user_id", userID)
		return res, true, nil
	}

	res, err := s.Reserve(ctx, userID, eventID, quantity)
	if err != nil {
		if relErr := s.idempotency.Release(context.WithoutCancel(ctx), scoped); relErr != nil {
			s.logger.Warn("release idempotency key", "error", relErr)
		}
		return nil, false, err
	}
	if err := s.idempotency.Complete(context.WithoutCancel(ctx), scoped, res.ID); err != nil {
		s.logger.Warn("complete idempotency key", "reservation_id", res.ID, "error", err)
	}
	return res, false, nil
}

func (s *reservationService) Cancel(ctx context.Context, reservationID string, requester domain.Principal) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	res, err := s.loadAccessible(ctx, reservationID, requester)
	if err != nil {
		return nil, err
	}
	if res.Status == domain.ReservationStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	var cancelled *domain.Reservation
	err = s.retry.do(ctx, "cancel", func() error {
		return s.locker.WithEventLock(ctx, res.EventID, func(txCtx context.Context) error {
			defer s.observeCriticalSection("cancel", time.Now())

			current, err := s.reservationRepo.GetByID(txCtx, reservationID)
			if err != nil {
				return err
			}
			if current.Status == domain.ReservationStatusCancelled {
				return domain.ErrAlreadyCancelled
			}
			now := s.clock.Now()
			if err := s.reservationRepo.SetStatus(txCtx, reservationID, domain.ReservationStatusCancelled, now); err != nil {
				return fmt.Errorf("cancel reservation: %w", err)
			}
			current.Status = domain.ReservationStatusCancelled
			current.CancelledAt = &now
			cancelled = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveReservation(domain.OutcomeCancelled)
	s.logger.Info("reservation cancelled", "reservation_id", reservationID, "event_id", cancelled.EventID, "by", requester.UserID)
	s.notify(ctx, domain.NotificationReservationCancelled, cancelled, nil)
	return cancelled, nil
}

func (s *reservationService) GetReservation(ctx context.Context, reservationID string, requester domain.Principal) (*domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.loadAccessible(ctx, reservationID, requester)
}

func (s *reservationService) ListReservations(ctx context.Context, requester domain.Principal, filter domain.ReservationFilter) ([]*domain.Reservation, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !requester.Admin {
		if requester.UserID == "" {
			return nil, 0, domain.ErrForbidden
		}
		filter.UserID = requester.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	list, total, err := s.reservationRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	if list == nil {
		list = []*domain.Reservation{}
	}
	return list, total, nil
}

func (s *reservationService) loadAccessible(ctx context.Context, reservationID string, requester domain.Principal) (*domain.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if !requester.CanAccess(res.UserID) {
		return nil, domain.ErrForbidden
	}
	return res, nil
}

// notify hands the change to the notifier on a detached goroutine. The reservation has
// already committed, so failures are only logged.
func (s *reservationService) notify(ctx context.Context, kind domain.NotificationKind, res *domain.Reservation, event *domain.Event) {
	occurredAt := s.clock.Now()
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if event == nil {
			e, err := s.eventRepo.GetByID(nctx, res.EventID)
			if err != nil {
				s.logger.Warn("notification skipped", "reservation_id", res.ID, "error", err)
				return
			}
			event = e
		}
		n := &domain.ReservationNotification{
			Kind:        kind,
			Reservation: res,
			Event:       event,
			OccurredAt:  occurredAt,
		}
		if err := s.notifier.Notify(nctx, n); err != nil {
			s.logger.Warn("notification failed", "kind", kind, "reservation_id", res.ID, "error", err)
		}
	}()
}

func (s *reservationService) observeCriticalSection(op string, started time.Time) {
	s.metrics.ObserveCriticalSection(op, time.Since(started))
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return domain.OutcomeSoldOut
	case errors.Is(err, domain.ErrConflict):
		return domain.OutcomeConflict
	default:
		return domain.OutcomeRejected
	}
}
