package models

import "errors"

// GroupError is returned for group lookups and group validation.
// Field is set when the error is tied to a request field.
type GroupError struct {
	Field   string
	Message string
}

func (e GroupError) Error() string {
	return e.Message
}

// LocationError is returned for location lookups and location validation
type LocationError struct {
	Field   string
	Message string
}

func (e LocationError) Error() string {
	return e.Message
}

// ImportError is returned by the bulk import pipeline
type ImportError struct {
	Message string
}

func (e ImportError) Error() string {
	return e.Message
}

// Group errors
var (
	ErrGroupNotFound     = GroupError{Message: "Group not found"}
	ErrGroupNameRequired = GroupError{Field: "name", Message: "name is required"}
	ErrGroupNameTooLong  = GroupError{Field: "name", Message: "name must be at most 100 characters"}
)

// Location errors
var (
	ErrLocationNotFound      = LocationError{Message: "Location not found"}
	ErrNoValidUpdates        = LocationError{Message: "No valid updates"}
	ErrLocationTitleRequired = LocationError{Field: "title", Message: "title is required"}
	ErrLocationTitleTooLong  = LocationError{Field: "title", Message: "title must be at most 200 characters"}
	ErrInvalidLatitude       = LocationError{Field: "lat", Message: "lat must be a valid latitude (-90 to 90)"}
	ErrInvalidLongitude      = LocationError{Field: "lng", Message: "lng must be a valid longitude (-180 to 180)"}
	ErrInvalidColor          = LocationError{Field: "color", Message: "color must be a hex color like #RRGGBB"}
	ErrDuplicateLocationID   = LocationError{Field: "locationIds", Message: "locationIds must not contain duplicates"}
)

// Import errors
var (
	ErrNoAddresses      = ImportError{"No valid addresses"}
	ErrImportNotFound   = ImportError{"Import not found"}
	ErrImportInProgress = ImportError{"Import already running"}
)

// FieldOf returns the request field a validation error refers to, if any
func FieldOf(err error) (string, bool) {
	var ge GroupError
	if errors.As(err, &ge) {
		return ge.Field, ge.Field != ""
	}
	var le LocationError
	if errors.As(err, &le) {
		return le.Field, le.Field != ""
	}
	return "", false
}
