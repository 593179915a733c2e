package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ticketinventory/internal/clock"
	"ticketinventory/internal/domain"
	"ticketinventory/internal/repository/memory"
)

var (
	testStart = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(4 * time.Hour)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingMetrics counts observations by label.
type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	retries  map[string]int
	sections map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		outcomes: make(map[string]int),
		retries:  make(map[string]int),
		sections: make(map[string]int),
	}
}

func (m *recordingMetrics) ObserveReservation(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *recordingMetrics) ObserveCriticalSection(op string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[op]++
}

func (m *recordingMetrics) ObserveRetry(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[op]++
}

func (m *recordingMetrics) outcome(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[name]
}

func (m *recordingMetrics) retry(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries[op]
}

// recordingNotifier captures notifications without ever blocking the sender.
type recordingNotifier struct {
	ch  chan *domain.ReservationNotification
	err error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan *domain.ReservationNotification, 256)}
}

func (n *recordingNotifier) Notify(_ context.Context, note *domain.ReservationNotification) error {
	select {
	case n.ch <- note:
	default:
	}
	return n.err
}

func (n *recordingNotifier) next(t *testing.T) *domain.ReservationNotification {
	t.Helper()
	select {
	case note := <-n.ch:
		return note
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
		return nil
	}
}

// conflictLocker fails every attempt as a store would under persistent contention.
type conflictLocker struct {
	mu    sync.Mutex
	calls int
}

func (l *conflictLocker) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return domain.ErrWriteConflict
}

// flakyLocker fails the first n attempts and then delegates.
type flakyLocker struct {
	mu       sync.Mutex
	failures int
	next     domain.InventoryLocker
}

func (l *flakyLocker) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.failures > 0 {
		l.failures--
		l.mu.Unlock()
		return domain.ErrWriteConflict
	}
	l.mu.Unlock()
	return l.next.WithEventLock(ctx, eventID, fn)
}

type harness struct {
	store        *memory.Store
	eventRepo    domain.EventRepository
	resRepo      domain.ReservationRepository
	locker       domain.InventoryLocker
	clock        *clock.Manual
	metrics      *recordingMetrics
	notifier     *recordingNotifier
	events       domain.EventService
	inventory    domain.InventoryService
	reservations domain.ReservationService
}

type harnessOption func(h *harness)

func withLocker(l domain.InventoryLocker) harnessOption {
	return func(h *harness) { h.locker = l }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	store := memory.NewStore()
	h := &harness{
		store:     store,
		eventRepo: memory.NewEventRepository(store),
		resRepo:   memory.NewReservationRepository(store),
		locker:    memory.NewInventoryLocker(store),
		clock:     clock.NewManual(testStart.Add(-30 * 24 * time.Hour)),
		metrics:   newRecordingMetrics(),
		notifier:  newRecordingNotifier(),
	}
	for _, opt := range opts {
		opt(h)
	}
	logger := discardLogger()
	h.events = NewEventService(h.eventRepo, h.resRepo, h.locker, h.clock, h.metrics, logger, 3, 5*time.Second)
	h.inventory = NewInventoryService(h.eventRepo, h.resRepo, 5*time.Second)
	h.reservations = NewReservationService(h.eventRepo, h.resRepo, h.locker, nil, h.notifier, h.metrics, h.clock, logger, 3, 5*time.Second)
	return h
}

func (h *harness) createEvent(t *testing.T, name string, capacity int) *domain.Event {
	t.Helper()
	e := &domain.Event{Name: name, StartDate: testStart, EndDate: testEnd, Capacity: capacity}
	require.NoError(t, h.events.CreateEvent(context.Background(), e))
	return e
}

func (h *harness) available(t *testing.T, eventID string) int {
	t.Helper()
	n, err := h.inventory.AvailableCapacity(context.Background(), eventID)
	require.NoError(t, err)
	return n
}

func (h *harness) booked(t *testing.T, eventID string) int {
	t.Helper()
	n, err := h.inventory.BookedTotal(context.Background(), eventID)
	require.NoError(t, err)
	return n
}
