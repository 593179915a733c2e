package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ticketinventory/internal/delivery/http/helpers"
	"ticketinventory/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Capacity    int       `json:"capacity"`
	Venue       string    `json:"venue"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.StartDate.IsZero() {
		errs = append(errs, "start_date is required")
	}
	if c.EndDate.IsZero() {
		errs = append(errs, "end_date is required")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.StartDate.After(c.EndDate) {
		errs = append(errs, "start_date must not be after end_date")
	}
	if c.Capacity < 1 {
		errs = append(errs, "capacity must be at least 1")
	}
	return errs
}

// EventSuccessResponse is the success response envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the data payload for GET /events.
type ListEventsResponse struct {
	Events     []*domain.Event        `json:"events"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// EventDetail is an event together with its current inventory.
type EventDetail struct {
	Event     *domain.Event `json:"event"`
	Booked    int           `json:"booked"`
	Available int           `json:"available"`
}

// GetEventSuccessResponse is the success response envelope for GET /events/{eventID} (200).
type GetEventSuccessResponse struct {
	Data  EventDetail       `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Availability is the data payload for GET /events/{eventID}/availability.
type Availability struct {
	EventID   string `json:"event_id"`
	Available int    `json:"available"`
}

// AvailabilitySuccessResponse is the success response envelope for GET /events/{eventID}/availability (200).
type AvailabilitySuccessResponse struct {
	Data  Availability      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger    *slog.Logger
	Service   domain.EventService
	Inventory domain.InventoryService
}

func NewEventController(logger *slog.Logger, svc domain.EventService, inventory domain.InventoryService) *EventController {
	return &EventController{
		Logger:    logger,
		Service:   svc,
		Inventory: inventory,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Lists events ordered by start date. Retired events are hidden unless include_retired=true.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param q query string false "Case-insensitive name search"
// @Param category query string false "Exact category"
// @Param include_retired query bool false "Include retired events"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains events and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := helpers.ParsePagination(r, helpers.EventPageLimits)
	includeRetired, _ := strconv.ParseBool(q.Get("include_retired"))
	filter := domain.EventFilter{
		Query:          q.Get("q"),
		Category:       q.Get("category"),
		IncludeRetired: includeRetired,
		Pagination:     params,
	}
	events, total, err := c.Service.ListEvents(r.Context(), filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an event with a fixed capacity. Names are unique across all events, retired ones included. Requires the admin role.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (name taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := &domain.Event{
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Capacity:    req.Capacity,
		Venue:       req.Venue,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with its booked total and remaining capacity. Retired events report zero available.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.GetEventSuccessResponse "data contains event and inventory"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	booked, err := c.Inventory.BookedTotal(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	detail := EventDetail{Event: event, Booked: booked}
	if event.Bookable() {
		detail.Available = max(event.Capacity-booked, 0)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, detail)
}

// GetAvailability godoc
// @Summary Get remaining capacity
// @Description Returns capacity minus the booked total. The value is a snapshot and may be stale by the time it is read.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.AvailabilitySuccessResponse "data contains available capacity"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (missing or retired)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/availability [get]
func (c *EventController) GetAvailability(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	available, err := c.Inventory.AvailableCapacity(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, Availability{EventID: eventID, Available: available})
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Name        *string    `json:"name"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Venue       *string    `json:"venue"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name must not be blank")
	}
	if u.StartDate != nil && u.EndDate != nil && u.StartDate.After(*u.EndDate) {
		errs = append(errs, "start_date must not be after end_date")
	}
	return errs
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Updates name, window and descriptive metadata. Capacity changes go through PUT /events/{eventID}/capacity. Requires the admin role.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (name taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, domain.EventPatch{
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Venue:       req.Venue,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateCapacityRequest is the request body for PUT /events/{eventID}/capacity.
type UpdateCapacityRequest struct {
	Capacity int `json:"capacity"`
}

// Validate implements Validator.
func (u UpdateCapacityRequest) Validate() []string {
	if u.Capacity < 1 {
		return []string{"capacity must be at least 1"}
	}
	return nil
}

// UpdateCapacity godoc
// @Summary Change event capacity
// @Description Sets a new capacity. The new value may not drop below the current booked total; existing reservations are never cancelled. Requires the admin role.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateCapacityRequest true "New capacity"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_too_low or conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/capacity [put]
func (c *EventController) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	var req UpdateCapacityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateCapacity(r.Context(), eventID, req.Capacity)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// RetireEvent godoc
// @Summary Retire an event
// @Description Stops admitting reservations. Existing reservations are kept and may still be cancelled. Retiring twice is a no-op. Requires the admin role.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the retired event"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) RetireEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	event, err := c.Service.RetireEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}
