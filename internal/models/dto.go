package models

import "time"

// LocationRequest is a location in a create, replace or add request
type LocationRequest struct {
	Lat   *float64 `json:"lat" validate:"required,latitude"`
	Lng   *float64 `json:"lng" validate:"required,longitude"`
	Title string   `json:"title" validate:"required,max=200"`
	Color string   `json:"color,omitempty" validate:"omitempty,rgbhex"`
}

// Input converts a validated request into model input
func (r LocationRequest) Input() LocationInput {
	in := LocationInput{Title: r.Title, Color: r.Color}
	if r.Lat != nil {
		in.Latitude = *r.Lat
	}
	if r.Lng != nil {
		in.Longitude = *r.Lng
	}
	return in
}

// CreateGroupRequest is the body of POST /api/groups
type CreateGroupRequest struct {
	Name      string            `json:"name" validate:"required,max=100"`
	Locations []LocationRequest `json:"locations,omitempty" validate:"omitempty,max=1000,dive"`
}

// UpdateGroupRequest is the body of PUT /api/groups/{id}.
// A nil Locations slice leaves locations untouched; an empty one clears them.
type UpdateGroupRequest struct {
	Name      *string           `json:"name,omitempty" validate:"omitempty,max=100"`
	Locations []LocationRequest `json:"locations" validate:"omitempty,max=1000,dive"`
}

// UpdateLocationRequest is the body of PUT /api/groups/{gid}/locations/{lid}
type UpdateLocationRequest struct {
	Color *string `json:"color,omitempty" validate:"omitempty,rgbhex"`
}

// ReorderRequest is the body of PUT /api/groups/{gid}/locations/reorder
type ReorderRequest struct {
	LocationIDs []string `json:"locationIds" validate:"required,max=1000,dive,required"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// FieldErrorDetail describes one invalid request field
type FieldErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error   string             `json:"error"`
	Details []FieldErrorDetail `json:"details,omitempty"`
}
