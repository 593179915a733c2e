package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"ticketinventory/internal/delivery/http/controllers"
	"ticketinventory/internal/delivery/http/helpers"
	"ticketinventory/internal/delivery/http/middleware"
	"ticketinventory/internal/domain"
)

// HealthHandler godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status is ok"
// @Router /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter initializes the HTTP router with all application routes.
// metricsHandler may be nil, in which case /metrics is not served.
func NewRouter(
	eventController *controllers.EventController,
	reservationController *controllers.ReservationController,
	verifier domain.TokenVerifier,
	metricsHandler http.Handler,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireAdmin(next))
	}

	// Events
	mux.HandleFunc("GET /events", auth(eventController.ListEvents))
	mux.HandleFunc("POST /events", admin(eventController.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", auth(eventController.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", admin(eventController.UpdateEvent))
	mux.HandleFunc("PUT /events/{eventID}/capacity", admin(eventController.UpdateCapacity))
	mux.HandleFunc("DELETE /events/{eventID}", admin(eventController.RetireEvent))
	mux.HandleFunc("GET /events/{eventID}/availability", auth(eventController.GetAvailability))

	// Reservations
	mux.HandleFunc("POST /events/{eventID}/reservations", auth(reservationController.Reserve))
	mux.HandleFunc("GET /reservations", auth(reservationController.ListReservations))
	mux.HandleFunc("GET /reservations/{reservationID}", auth(reservationController.GetReservation))
	mux.HandleFunc("POST /reservations/{reservationID}/cancel", auth(reservationController.CancelReservation))

	// Operations
	mux.HandleFunc("GET /health", HealthHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with CORS and request logging.
func NewHandler(mux *http.ServeMux, allowedOrigins []string, logger *slog.Logger) http.Handler {
	cors := middleware.NewCORSPolicy(allowedOrigins, []string{
		controllers.IdempotentReplayHeader,
		middleware.RequestIDHeader,
	})
	return middleware.LoggingMiddleware(logger, cors.Handler(mux))
}
