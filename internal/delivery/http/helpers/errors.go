package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"ticketinventory/internal/domain"
)

// WriteServiceError maps a domain error to its HTTP status and error code.
// Unrecognised errors are logged and reported as 500 without leaking their text.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrCapacityExceeded):
		WriteJSONError(w, http.StatusConflict, ErrCodeSoldOut, err.Error())
	case errors.Is(err, domain.ErrCapacityTooLow):
		WriteJSONError(w, http.StatusConflict, ErrCodeCapacityTooLow, err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		WriteJSONError(w, http.StatusConflict, ErrCodeAlreadyCancelled, err.Error())
	case errors.Is(err, domain.ErrConflict):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}
