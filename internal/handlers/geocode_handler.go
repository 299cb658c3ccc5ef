package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mapgroups/server/internal/geocoding"
	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
)

// GeocodeHandler resolves a single address for search and manual add
type GeocodeHandler struct {
	geocoder geocoding.Geocoder
}

// NewGeocodeHandler creates a new GeocodeHandler
func NewGeocodeHandler(geocoder geocoding.Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// Geocode looks up one address
// @Summary Geocode address
// @Tags geocode
// @Produce json
// @Param q query string true "Address"
// @Success 200 {object} models.GeocodeResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/geocode [get]
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondFieldErrors(w, models.FieldErrorDetail{Field: "q", Message: "q is required"})
		return
	}
	if len([]rune(q)) > models.MaxLocationTitleLength {
		respondFieldErrors(w, models.FieldErrorDetail{Field: "q", Message: "q must be at most 200 characters"})
		return
	}

	result, err := h.geocoder.Geocode(r.Context(), q)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, geocoding.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, geocoding.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, geocoding.ErrDenied):
			status = http.StatusForbidden
		default:
			observability.Ctx(r.Context()).Warn().Err(err).Msg("Geocoding failed")
		}
		respondError(w, status, geocoding.FailureReason(err))
		return
	}

	respondJSON(w, http.StatusOK, models.GeocodeResult{
		Lat:              result.Latitude,
		Lng:              result.Longitude,
		FormattedAddress: result.FormattedAddress,
	})
}
