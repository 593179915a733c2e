package domain

import (
	"context"
	"time"
)

// ReservationStatus is the state of a reservation. Cancelled is terminal.
type ReservationStatus string

const (
	ReservationStatusBooked    ReservationStatus = "Booked"
	ReservationStatusCancelled ReservationStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	return s == ReservationStatusBooked || s == ReservationStatusCancelled
}

// Reservation is a user's claim on a quantity of an event's tickets.
// swagger:model Reservation
type Reservation struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	UserID      string            `json:"user_id"`
	Quantity    int               `json:"quantity"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
}

// NewReservation returns a Booked reservation. ID is typically set by the repository on insert.
func NewReservation(eventID, userID string, quantity int, createdAt time.Time) *Reservation {
	return &Reservation{
		EventID:   eventID,
		UserID:    userID,
		Quantity:  quantity,
		Status:    ReservationStatusBooked,
		CreatedAt: createdAt,
	}
}

// ReservationFilter narrows ledger listings. Empty fields match everything.
type ReservationFilter struct {
	UserID     string
	EventID    string
	Status     ReservationStatus
	Pagination PaginationParams
}

// ReservationRepository is the reservation ledger: a queryable store with no business rules.
// All methods join the atomic unit carried in ctx, if any.
type ReservationRepository interface {
	Insert(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	SetStatus(ctx context.Context, id string, status ReservationStatus, at time.Time) error
	SumQuantityByEventAndStatus(ctx context.Context, eventID string, status ReservationStatus) (int, error)
	List(ctx context.Context, filter ReservationFilter) ([]*Reservation, int, error)
}

// InventoryService is the inventory accountant. It never mutates state and its results
// may be stale as soon as they are returned.
type InventoryService interface {
	AvailableCapacity(ctx context.Context, eventID string) (int, error)
	CanAdmit(ctx context.Context, eventID string, quantity int) (bool, error)
	BookedTotal(ctx context.Context, eventID string) (int, error)
}

// ReservationService is the reservation lifecycle controller.
type ReservationService interface {
	Reserve(ctx context.Context, userID, eventID string, quantity int) (*Reservation, error)
	// ReserveIdempotent behaves like Reserve but replays the original reservation when the
	// same key is presented again. replayed is true when no new reservation was created.
	ReserveIdempotent(ctx context.Context, key, userID, eventID string, quantity int) (r *Reservation, replayed bool, err error)
	Cancel(ctx context.Context, reservationID string, requester Principal) (*Reservation, error)
	GetReservation(ctx context.Context, reservationID string, requester Principal) (*Reservation, error)
	ListReservations(ctx context.Context, requester Principal, filter ReservationFilter) ([]*Reservation, int, error)
}

// IdempotencyStore remembers which reservation a client-supplied key produced.
type IdempotencyStore interface {
	// Claim reserves key for a new request. When the key was already used, claimed is false
	// and reservationID holds the recorded reservation, or is empty while the first request
	// is still in flight.
	Claim(ctx context.Context, key string) (reservationID string, claimed bool, err error)
	Complete(ctx context.Context, key, reservationID string) error
	Release(ctx context.Context, key string) error
}
