package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxLocationTitleLength is the longest title accepted, in characters
	MaxLocationTitleLength = 200

	// DefaultLocationColor is used when a location is created without a color
	DefaultLocationColor = "#4285F4"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Location is a single marker within a group
type Location struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"groupId"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Title      string    `json:"title"`
	Color      string    `json:"color"`
	OrderIndex int       `json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LocationInput holds the caller supplied fields of a new location
type LocationInput struct {
	Latitude  float64
	Longitude float64
	Title     string
	Color     string
}

// NewLocation validates input and creates a location at the given position
func NewLocation(groupID string, in LocationInput, orderIndex int) (*Location, error) {
	if in.Latitude < -90 || in.Latitude > 90 {
		return nil, ErrInvalidLatitude
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return nil, ErrInvalidLongitude
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrLocationTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxLocationTitleLength {
		return nil, ErrLocationTitleTooLong
	}

	color := in.Color
	if color == "" {
		color = DefaultLocationColor
	}
	if !IsValidColor(color) {
		return nil, ErrInvalidColor
	}

	return &Location{
		ID:         uuid.New().String(),
		GroupID:    groupID,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Title:      title,
		Color:      NormalizeColor(color),
		OrderIndex: orderIndex,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// IsValidColor reports whether c is a #RRGGBB hex color
func IsValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

// NormalizeColor returns c in the stored #RRGGBB upper case form
func NormalizeColor(c string) string {
	return strings.ToUpper(c)
}
