package handlers

import (
	"net/http"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/services"
)

// GroupHandler handles location group and location endpoints
type GroupHandler struct {
	groupService *services.GroupService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// ListGroups returns every group of the device with its locations
// @Summary List groups
// @Description Returns the device's groups, newest first, each with its ordered locations
// @Tags groups
// @Produce json
// @Success 200 {array} models.Group
// @Failure 500 {object} models.ErrorResponse
// @Router /api/groups [get]
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}

	groups, err := h.groupService.GetGroups(r.Context(), device.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	respondJSON(w, http.StatusOK, groups)
}

// GetGroup returns one group
// @Summary Get group
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id} [get]
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), id, device.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// CreateGroup creates a group with optional initial locations
// @Summary Create group
// @Description Creates a group; all initial locations are saved together or not at all
// @Tags groups
// @Accept json
// @Produce json
// @Param request body models.CreateGroupRequest true "Group"
// @Success 201 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Router /api/groups [post]
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}

	var req models.CreateGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), device.ID, req.Name, toLocationInputs(req.Locations))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

// UpdateGroup renames a group and/or replaces its locations
// @Summary Update group
// @Description Renames the group when name is present and replaces all locations when locations is present
// @Tags groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param request body models.UpdateGroupRequest true "Changes"
// @Success 200 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id} [put]
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Name == nil && req.Locations == nil {
		respondServiceError(w, r, models.ErrNoValidUpdates)
		return
	}

	group, err := h.groupService.UpdateGroup(r.Context(), id, device.ID, req.Name, toLocationInputs(req.Locations))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// DeleteGroup deletes a group and its locations
// @Summary Delete group
// @Tags groups
// @Param id path string true "Group ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id} [delete]
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.groupService.DeleteGroup(r.Context(), id, device.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLocation appends a location to a group
// @Summary Add location
// @Tags locations
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param request body models.LocationRequest true "Location"
// @Success 201 {object} models.Location
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id}/locations [post]
func (h *GroupHandler) AddLocation(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.LocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	location, err := h.groupService.AddLocation(r.Context(), groupID, device.ID, req.Input(), services.SourceManual)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, location)
}

// ReorderLocations sets the display order of a group's locations
// @Summary Reorder locations
// @Description Applies the full id order in one transaction; an unknown id rejects the whole request
// @Tags locations
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param request body models.ReorderRequest true "Ordered location ids"
// @Success 200 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id}/locations/reorder [put]
func (h *GroupHandler) ReorderLocations(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.ReorderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.groupService.ReorderLocations(r.Context(), groupID, device.ID, req.LocationIDs); err != nil {
		respondServiceError(w, r, err)
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), groupID, device.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// UpdateLocation changes the color of a location
// @Summary Recolor location
// @Tags locations
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param locationId path string true "Location ID"
// @Param request body models.UpdateLocationRequest true "Changes"
// @Success 200 {object} models.Location
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id}/locations/{locationId} [put]
func (h *GroupHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	locationID, ok := pathID(w, r, "locationId")
	if !ok {
		return
	}

	var req models.UpdateLocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	location, err := h.groupService.UpdateLocation(r.Context(), groupID, locationID, device.ID, req.Color)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, location)
}

// DeleteLocation removes a location from a group
// @Summary Delete location
// @Tags locations
// @Param id path string true "Group ID"
// @Param locationId path string true "Location ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /api/groups/{id}/locations/{locationId} [delete]
func (h *GroupHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	locationID, ok := pathID(w, r, "locationId")
	if !ok {
		return
	}

	if err := h.groupService.DeleteLocation(r.Context(), groupID, locationID, device.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toLocationInputs keeps nil distinct from empty so a replace can clear a group
func toLocationInputs(reqs []models.LocationRequest) []models.LocationInput {
	if reqs == nil {
		return nil
	}
	inputs := make([]models.LocationInput, len(reqs))
	for i, req := range reqs {
		inputs[i] = req.Input()
	}
	return inputs
}
