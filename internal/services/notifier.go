package services

import (
	"context"
	"errors"

	"ticketinventory/internal/domain"
)

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *domain.ReservationNotification) error { return nil }

// MultiNotifier delivers a notification to every notifier in turn and joins their errors,
// so one failing channel does not starve the others.
type MultiNotifier []domain.Notifier

func (m MultiNotifier) Notify(ctx context.Context, n *domain.ReservationNotification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
