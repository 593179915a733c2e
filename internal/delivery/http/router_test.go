package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketinventory/internal/adapters/auth"
	"ticketinventory/internal/adapters/metrics"
	"ticketinventory/internal/clock"
	deliveryhttp "ticketinventory/internal/delivery/http"
	"ticketinventory/internal/delivery/http/controllers"
	"ticketinventory/internal/delivery/http/helpers"
	"ticketinventory/internal/domain"
	"ticketinventory/internal/repository/memory"
	"ticketinventory/internal/services"
)

const (
	testSecret = "router-test-secret"
	testOrigin = "http://app.test"
)

type server struct {
	handler http.Handler
	issuer  domain.TokenIssuer
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	eventRepo := memory.NewEventRepository(store)
	resRepo := memory.NewReservationRepository(store)
	locker := memory.NewInventoryLocker(store)
	clk := clock.NewSystem()
	recorder := metrics.NewRecorder(prometheus.NewRegistry())

	eventSvc := services.NewEventService(eventRepo, resRepo, locker, clk, recorder, logger, 3, 5*time.Second)
	inventorySvc := services.NewInventoryService(eventRepo, resRepo, 5*time.Second)
	reservationSvc := services.NewReservationService(eventRepo, resRepo, locker, nil, nil, recorder, clk, logger, 3, 5*time.Second)

	mux := deliveryhttp.NewRouter(
		controllers.NewEventController(logger, eventSvc, inventorySvc),
		controllers.NewReservationController(logger, reservationSvc),
		auth.NewJWTVerifier(testSecret),
		recorder.Handler(),
		logger,
	)
	return &server{
		handler: deliveryhttp.NewHandler(mux, []string{testOrigin}, logger),
		issuer:  auth.NewJWTIssuer(testSecret),
	}
}

func (s *server) token(t *testing.T, userID string, admin bool) string {
	t.Helper()
	var roles []string
	if admin {
		roles = []string{domain.RoleAdmin}
	}
	tok, err := s.issuer.Issue(userID, userID+"@example.com", roles, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func data[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data  T                 `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.Nil(t, envelope.Error)
	return envelope.Data
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

func (s *server) createEvent(t *testing.T, name string, capacity int) *domain.Event {
	t.Helper()
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	rr := s.do(t, http.MethodPost, "/events", s.token(t, "ops", true), map[string]any{
		"name":       name,
		"start_date": start,
		"end_date":   start.Add(2 * time.Hour),
		"capacity":   capacity,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return data[*domain.Event](t, rr)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", data[map[string]string](t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_AuthAndRoles(t *testing.T) {
	s := newServer(t)

	rr := s.do(t, http.MethodGet, "/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodGet, "/events", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodPost, "/events", s.token(t, "alice", false), map[string]any{"name": "Nope"})
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, helpers.ErrCodeForbidden, errorCode(t, rr))

	e := s.createEvent(t, "Gated", 5)
	rr = s.do(t, http.MethodPut, "/events/"+e.ID+"/capacity", s.token(t, "alice", false), map[string]int{"capacity": 1})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodDelete, "/events/"+e.ID, s.token(t, "alice", false), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

// A and B compete for an event of capacity 3; the ledger decides who gets in.
func TestRouter_ReservationScenario(t *testing.T) {
	s := newServer(t)
	e := s.createEvent(t, "Small Room", 3)
	alice, bob, ops := s.token(t, "alice", false), s.token(t, "bob", false), s.token(t, "ops", true)
	reservePath := "/events/" + e.ID + "/reservations"

	rr := s.do(t, http.MethodPost, reservePath, alice, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	a := data[*domain.Reservation](t, rr)
	assert.Equal(t, "alice", a.UserID)

	rr = s.do(t, http.MethodPost, reservePath, bob, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, helpers.ErrCodeSoldOut, errorCode(t, rr))

	rr = s.do(t, http.MethodGet, "/events/"+e.ID+"/availability", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, data[controllers.Availability](t, rr).Available)

	rr = s.do(t, http.MethodPost, "/reservations/"+a.ID+"/cancel", bob, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, "/reservations/"+a.ID+"/cancel", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ReservationStatusCancelled, data[*domain.Reservation](t, rr).Status)

	rr = s.do(t, http.MethodPost, "/reservations/"+a.ID+"/cancel", ops, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, helpers.ErrCodeAlreadyCancelled, errorCode(t, rr))

	rr = s.do(t, http.MethodPost, reservePath, bob, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code)
	b := data[*domain.Reservation](t, rr)

	rr = s.do(t, http.MethodPut, "/events/"+e.ID+"/capacity", ops, map[string]int{"capacity": 1})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, helpers.ErrCodeCapacityTooLow, errorCode(t, rr))

	rr = s.do(t, http.MethodGet, "/events/"+e.ID, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	detail := data[controllers.EventDetail](t, rr)
	assert.Equal(t, 2, detail.Booked)
	assert.Equal(t, 1, detail.Available)

	rr = s.do(t, http.MethodGet, "/reservations", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	mine := data[controllers.ListReservationsResponse](t, rr)
	require.Len(t, mine.Reservations, 1)
	assert.Equal(t, b.ID, mine.Reservations[0].ID)

	rr = s.do(t, http.MethodGet, "/reservations?event_id="+e.ID, ops, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, data[controllers.ListReservationsResponse](t, rr).Pagination.Total)

	rr = s.do(t, http.MethodDelete, "/events/"+e.ID, ops, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, reservePath, alice, map[string]int{"quantity": 1})
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodPost, "/reservations/"+b.ID+"/cancel", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_CORSExposesReplayAndRequestID(t *testing.T) {
	s := newServer(t)
	e := s.createEvent(t, "Browser", 5)

	req := httptest.NewRequest(http.MethodPost, "/events/"+e.ID+"/reservations", bytes.NewBufferString(`{"quantity":1}`))
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token(t, "browser-user", false))
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, controllers.IdempotentReplayHeader+", X-Request-ID", rr.Header().Get("Access-Control-Expose-Headers"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	preflight := httptest.NewRequest(http.MethodOptions, "/events/"+e.ID+"/reservations", nil)
	preflight.Header.Set("Origin", "http://elsewhere.test")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, preflight)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	s := newServer(t)
	rr := s.do(t, http.MethodGet, "/nope", s.token(t, "alice", false), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
