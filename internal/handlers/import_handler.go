package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/services"
)

// ImportHandler handles bulk address import endpoints
type ImportHandler struct {
	importService *services.ImportService
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// Import geocodes pasted addresses into a group
// @Summary Bulk import addresses
// @Description Geocodes each address in turn and appends successes to the target group.
// @Description Progress is published on the websocket topic import:{importId}.
// @Description Disconnecting or DELETE /api/import/{importId} stops the batch after the current address.
// @Tags import
// @Accept json
// @Produce json
// @Param request body models.ImportRequest true "Addresses and target"
// @Success 200 {object} models.ImportResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/import [post]
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}

	var req models.ImportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.importService.Import(r.Context(), device.ID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Parse previews how text will be split into addresses
// @Summary Preview import addresses
// @Tags import
// @Accept json
// @Produce json
// @Param request body models.ParseRequest true "Pasted text"
// @Success 200 {object} models.ParseResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/import/parse [post]
func (h *ImportHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req models.ParseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	addresses, truncated := h.importService.Settings().ParseAddresses(req.Text)
	respondJSON(w, http.StatusOK, models.ParseResponse{
		Addresses: addresses,
		Count:     len(addresses),
		Truncated: truncated,
	})
}

// Cancel stops a running import of the device
// @Summary Cancel import
// @Tags import
// @Param importId path string true "Import ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/import/{importId} [delete]
func (h *ImportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}

	if err := h.importService.Cancel(device.ID, chi.URLParam(r, "importId")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
