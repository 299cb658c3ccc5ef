package handlers

import (
	"net/http"
)

// DeviceHandler exposes the anonymous device identity
type DeviceHandler struct{}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler() *DeviceHandler {
	return &DeviceHandler{}
}

// GetDevice returns the device bound to the request cookie
// @Summary Current device
// @Description Returns the device identity; a new one is issued when the cookie is missing or unknown
// @Tags devices
// @Produce json
// @Success 200 {object} models.Device
// @Router /api/device [get]
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, device)
}
