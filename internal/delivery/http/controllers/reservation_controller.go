package controllers

import (
	"log/slog"
	"net/http"

	"ticketinventory/internal/delivery/http/helpers"
	"ticketinventory/internal/delivery/http/middleware"
	"ticketinventory/internal/domain"
)

const (
	// IdempotencyKeyHeader lets clients retry a reservation without booking twice.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set to "true" when the response replays an earlier reservation.
	IdempotentReplayHeader = "Idempotent-Replayed"
)

// ReserveRequest is the request body for POST /events/{eventID}/reservations.
type ReserveRequest struct {
	Quantity int `json:"quantity"`
}

// Validate implements Validator.
func (r ReserveRequest) Validate() []string {
	if r.Quantity < 1 {
		return []string{"quantity must be at least 1"}
	}
	return nil
}

// ReservationSuccessResponse is the success response envelope for endpoints returning one reservation.
type ReservationSuccessResponse struct {
	Data  *domain.Reservation `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ListReservationsResponse is the data payload for GET /reservations.
type ListReservationsResponse struct {
	Reservations []*domain.Reservation  `json:"reservations"`
	Pagination   helpers.PaginationMeta `json:"pagination"`
}

// ListReservationsSuccessResponse is the success response envelope for GET /reservations (200).
type ListReservationsSuccessResponse struct {
	Data  ListReservationsResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

type ReservationController struct {
	Logger  *slog.Logger
	Service domain.ReservationService
}

func NewReservationController(logger *slog.Logger, svc domain.ReservationService) *ReservationController {
	return &ReservationController{
		Logger:  logger,
		Service: svc,
	}
}

// Reserve godoc
// @Summary Reserve tickets
// @Description Books quantity tickets for the caller. The booked total of an event never exceeds its capacity; when it would, the request fails with sold_out and nothing is booked. Send an Idempotency-Key header to make retries safe: a replay returns the original reservation with 200.
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param Idempotency-Key header string false "Client-chosen key scoped to the caller"
// @Param body body ReserveRequest true "Quantity to book"
// @Success 201 {object} controllers.ReservationSuccessResponse "data contains the new reservation"
// @Success 200 {object} controllers.ReservationSuccessResponse "data contains the replayed reservation"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (missing or retired event)"
// @Failure 409 {object} helpers.APIResponse "error.code: sold_out or conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/reservations [post]
func (c *ReservationController) Reserve(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req ReserveRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	res, replayed, err := c.Service.ReserveIdempotent(r.Context(), r.Header.Get(IdempotencyKeyHeader), principal.UserID, eventID, req.Quantity)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if replayed {
		w.Header().Set(IdempotentReplayHeader, "true")
		helpers.WriteJSONSuccess(w, http.StatusOK, res)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}

// ListReservations godoc
// @Summary List reservations
// @Description Lists the caller's reservations, newest first. Admins see every user's reservations and may filter by user_id.
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param event_id query string false "Filter by event"
// @Param status query string false "Booked or Cancelled"
// @Param user_id query string false "Filter by user (admin only)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 50)"
// @Success 200 {object} controllers.ListReservationsSuccessResponse "data contains reservations and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations [get]
func (c *ReservationController) ListReservations(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	params := helpers.ParsePagination(r, helpers.ReservationPageLimits)
	filter := domain.ReservationFilter{
		UserID:     q.Get("user_id"),
		EventID:    q.Get("event_id"),
		Status:     domain.ReservationStatus(q.Get("status")),
		Pagination: params,
	}
	list, total, err := c.Service.ListReservations(r.Context(), principal, filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListReservationsResponse{
		Reservations: list,
		Pagination:   helpers.NewPaginationMeta(params, total),
	})
}

// GetReservation godoc
// @Summary Get a reservation
// @Description Returns a reservation owned by the caller, or any reservation for admins.
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse "data contains the reservation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID} [get]
func (c *ReservationController) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := r.PathValue("reservationID")
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	res, err := c.Service.GetReservation(r.Context(), reservationID, principal)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// CancelReservation godoc
// @Summary Cancel a reservation
// @Description Cancels a Booked reservation and returns its seats to the event. Cancelling twice fails with already_cancelled and changes nothing. Allowed for the owner and admins, also on retired events.
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param reservationID path string true "Reservation ID (UUID)"
// @Success 200 {object} controllers.ReservationSuccessResponse "data contains the cancelled reservation"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: already_cancelled or conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /reservations/{reservationID}/cancel [post]
func (c *ReservationController) CancelReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := r.PathValue("reservationID")
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	res, err := c.Service.Cancel(r.Context(), reservationID, principal)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}
