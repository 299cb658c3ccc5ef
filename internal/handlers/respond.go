package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mapgroups/server/internal/middleware"
	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/validation"
)

// maxBodyBytes bounds request bodies; a full replace of 1000 locations fits easily
const maxBodyBytes = 1 << 20

const (
	msgValidationFailed = "Validation failed"
	msgInvalidBody      = "Invalid request body"
	msgInternalError    = "Internal server error"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

func respondFieldErrors(w http.ResponseWriter, details ...models.FieldErrorDetail) {
	respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
		Error:   msgValidationFailed,
		Details: details,
	})
}

// respondServiceError maps a service error onto the response conventions:
// validation 400 with details, not found or not owned 404, anything else 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		respondValidationError(w, ve)
		return
	}
	if field, ok := models.FieldOf(err); ok {
		respondFieldErrors(w, models.FieldErrorDetail{Field: field, Message: err.Error()})
		return
	}

	switch {
	case errors.Is(err, models.ErrGroupNotFound),
		errors.Is(err, models.ErrLocationNotFound),
		errors.Is(err, models.ErrImportNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrNoValidUpdates),
		errors.Is(err, models.ErrNoAddresses):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrImportInProgress):
		respondError(w, http.StatusConflict, err.Error())
	default:
		observability.Ctx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondError(w, http.StatusInternalServerError, msgInternalError)
	}
}

func respondValidationError(w http.ResponseWriter, ve *validation.RequestValidationError) {
	details := make([]models.FieldErrorDetail, 0, len(ve.Errors()))
	for _, fe := range ve.Errors() {
		details = append(details, models.FieldErrorDetail{Field: fe.Field, Message: fe.Message})
	}
	respondFieldErrors(w, details...)
}

// decodeAndValidate reads a JSON body into v and runs struct validation.
// It writes the 400 response itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	if ve := validation.ValidateStruct(v); ve != nil {
		respondValidationError(w, ve)
		return false
	}
	return true
}

// pathID returns a well-formed id URL parameter or writes a 400
func pathID(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	id := chi.URLParam(r, param)
	if !models.IsValidID(id) {
		respondFieldErrors(w, models.FieldErrorDetail{Field: param, Message: param + " must be a valid UUID"})
		return "", false
	}
	return id, true
}

// currentDevice returns the device attached by the identity middleware
func currentDevice(w http.ResponseWriter, r *http.Request) (*models.Device, bool) {
	device := middleware.GetDeviceFromContext(r.Context())
	if device == nil {
		observability.Ctx(r.Context()).Error().Msg("Request reached handler without a device")
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return nil, false
	}
	return device, true
}
