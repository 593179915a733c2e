package domain

import (
	"context"
	"time"
)

// NotificationKind identifies what happened to a reservation.
type NotificationKind string

const (
	NotificationReservationBooked    NotificationKind = "reservation.booked"
	NotificationReservationCancelled NotificationKind = "reservation.cancelled"
)

// ReservationNotification is emitted after a reservation change has committed.
type ReservationNotification struct {
	Kind        NotificationKind `json:"kind"`
	Reservation *Reservation     `json:"reservation"`
	Event       *Event           `json:"event"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// Notifier delivers reservation notifications. Delivery is best effort: a failure
// never rolls back the reservation it describes.
type Notifier interface {
	Notify(ctx context.Context, n *ReservationNotification) error
}
