package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mapgroups/server/internal/services"
)

// ExportHandler serves group downloads
type ExportHandler struct {
	groupService  *services.GroupService
	exportService *services.ExportService
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(groupService *services.GroupService, exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{
		groupService:  groupService,
		exportService: exportService,
	}
}

// Export downloads a group as CSV, GeoJSON, PNG or a ZIP of all three
// @Summary Export group
// @Tags export
// @Produce text/csv,application/geo+json,image/png,application/zip
// @Param id path string true "Group ID"
// @Param format path string true "csv, geojson, png or zip"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id}/export.{format} [get]
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	format, ok := services.ParseExportFormat(chi.URLParam(r, "format"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Unsupported export format")
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), id, device.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still become a 500
	var buf bytes.Buffer
	if err := h.exportService.Write(r.Context(), &buf, group, format); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(group)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
