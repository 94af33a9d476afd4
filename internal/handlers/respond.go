package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"lexassist-backend/internal/middleware"
	"lexassist-backend/internal/models"
	"lexassist-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// handleServiceError maps service errors to a status and flat error body.
// Anything unclassified is logged and answered with fallback as a 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		validationErr  *services.ValidationError
		unsupportedErr *services.UnsupportedFormatError
		emptyErr       *services.EmptyDocumentError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &unsupportedErr):
		writeError(w, http.StatusUnsupportedMediaType, unsupportedErr.Message)
	case errors.As(err, &emptyErr):
		writeError(w, http.StatusUnprocessableEntity, emptyErr.Message)
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
