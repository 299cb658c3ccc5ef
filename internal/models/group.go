package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxGroupNameLength is the longest group name accepted, in characters
const MaxGroupNameLength = 100

// Group is a named, ordered collection of locations owned by one device
type Group struct {
	ID        string      `json:"id"`
	DeviceID  string      `json:"-"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Locations []*Location `json:"locations"`
}

// NewGroup creates a group with a generated ID
func NewGroup(deviceID, name string) (*Group, error) {
	name, err := NormalizeGroupName(name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Group{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Locations: []*Location{},
	}, nil
}

// NormalizeGroupName trims a group name and checks its length
func NormalizeGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrGroupNameRequired
	}
	if utf8.RuneCountInString(name) > MaxGroupNameLength {
		return "", ErrGroupNameTooLong
	}
	return name, nil
}

// LocationIDs returns the ids of the group's locations in display order
func (g Group) LocationIDs() []string {
	ids := make([]string, len(g.Locations))
	for i, l := range g.Locations {
		ids[i] = l.ID
	}
	return ids
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug returns a filename friendly form of the group name
func (g Group) Slug() string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(g.Name), "-"), "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	if slug == "" {
		return "locations"
	}
	return slug
}
