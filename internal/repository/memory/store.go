// Package memory holds in-process implementations of the catalog, ledger and
// inventory locker. They back STORE=memory and the concurrency tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ticketinventory/internal/domain"
)

// Store is the shared state behind the memory repositories.
// mu guards the maps only for the duration of a single read or write; admission
// decisions are serialised by the per-event mutexes in locks.
type Store struct {
	mu           sync.RWMutex
	events       map[string]*domain.Event
	reservations map[string]*domain.Reservation

	locks sync.Map // event id -> *sync.Mutex

	newID func() string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:       make(map[string]*domain.Event),
		reservations: make(map[string]*domain.Reservation),
		newID:        uuid.NewString,
	}
}

type heldLocksKey struct{}

type inventoryLocker struct {
	store *Store
}

// NewInventoryLocker returns an InventoryLocker that holds one mutex per event.
func NewInventoryLocker(store *Store) domain.InventoryLocker {
	return &inventoryLocker{store: store}
}

func (l *inventoryLocker) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.store.hasEvent(eventID) {
		return domain.ErrNotFound
	}

	held, _ := ctx.Value(heldLocksKey{}).(map[string]struct{})
	if _, ok := held[eventID]; ok {
		return fn(ctx)
	}

	mu := l.store.eventMutex(eventID)
	mu.Lock()
	defer mu.Unlock()

	next := make(map[string]struct{}, len(held)+1)
	for id := range held {
		next[id] = struct{}{}
	}
	next[eventID] = struct{}{}
	return fn(context.WithValue(ctx, heldLocksKey{}, next))
}

func (s *Store) eventMutex(eventID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(eventID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Store) hasEvent(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[id]
	return ok
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	return &c
}

func cloneReservation(r *domain.Reservation) *domain.Reservation {
	c := *r
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}
