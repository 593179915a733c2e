package domain

import (
	"context"
	"time"
)

// EventState is the lifecycle state of an event as seen by admission and listings.
type EventState string

const (
	EventStateActive  EventState = "active"
	EventStateRetired EventState = "retired"
)

// Event is a ticketed event with a fixed capacity.
// swagger:model Event
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Capacity    int       `json:"capacity"`
	Retired     bool      `json:"retired"`
	Venue       string    `json:"venue,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(name string, startDate, endDate time.Time, capacity int, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		Capacity:  capacity,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// State reports whether the event still accepts reservations.
func (e *Event) State() EventState {
	if e.Retired {
		return EventStateRetired
	}
	return EventStateActive
}

// Bookable is true when new reservations may be admitted against the event.
func (e *Event) Bookable() bool {
	return e.State() == EventStateActive
}

// EventFilter narrows ListEvents. Retired events are excluded unless IncludeRetired is set.
type EventFilter struct {
	Query          string
	Category       string
	IncludeRetired bool
	Pagination     PaginationParams
}

// EventPatch holds optional metadata edits. Nil fields are left unchanged.
// Capacity is intentionally absent; it goes through UpdateCapacity.
type EventPatch struct {
	Name        *string    `json:"name"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Venue       *string    `json:"venue"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
}

// EventRepository defines the interface for event storage.
// Create and Update return ErrConflict when the name is already taken.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByName(ctx context.Context, name string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, int, error)
	Update(ctx context.Context, event *Event) error
}

// InventoryLocker provides the per-event atomic unit used for admission decisions.
// WithEventLock runs fn with exclusive access to the event's inventory; fn must pass
// the context it receives to every repository call so they join the same unit.
// It returns ErrNotFound when the event does not exist and ErrWriteConflict when the
// unit could not commit because of a concurrent writer.
type InventoryLocker interface {
	WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context) error) error
}

// EventService is the event catalog.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (*Event, error)
	UpdateCapacity(ctx context.Context, eventID string, capacity int) (*Event, error)
	RetireEvent(ctx context.Context, eventID string) (*Event, error)
}
