// Package viewstate holds the client side state of the map view: the
// selected group, its markers in display order, and markers added before
// any group was selected.
package viewstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mapgroups/server/internal/models"
)

var (
	ErrNoGroup          = errors.New("no group selected")
	ErrIndexOutOfRange  = errors.New("marker index out of range")
	ErrNothingToSave    = errors.New("no temporary markers to save")
	ErrUnsavedTemporary = errors.New("temporary markers have not been saved or discarded")
)

// API is the subset of the REST client the session calls
type API interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	CreateGroup(ctx context.Context, name string, locations []models.LocationRequest) (*models.Group, error)
	AddLocation(ctx context.Context, groupID string, location models.LocationRequest) (*models.Location, error)
	ReorderLocations(ctx context.Context, groupID string, locationIDs []string) (*models.Group, error)
	RecolorLocation(ctx context.Context, groupID, locationID, color string) (*models.Location, error)
	DeleteLocation(ctx context.Context, groupID, locationID string) error
}

// Marker is a displayed location. Temporary markers have no ID.
type Marker struct {
	ID        string
	Latitude  float64
	Longitude float64
	Title     string
	Color     string
	Temporary bool
}

func (m Marker) request() models.LocationRequest {
	lat, lng := m.Latitude, m.Longitude
	return models.LocationRequest{Lat: &lat, Lng: &lng, Title: m.Title, Color: m.Color}
}

func markerOf(loc *models.Location) Marker {
	return Marker{
		ID:        loc.ID,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Title:     loc.Title,
		Color:     loc.Color,
	}
}

// Session is the view state of one browser tab. Mutating calls are
// serialized, but the state lock is never held across an API call, so
// readers see local changes such as a dragged marker at once.
type Session struct {
	api API

	ops sync.Mutex

	mu        sync.Mutex
	group     *models.Group
	markers   []Marker
	temporary []Marker
	// version counts local changes; a response only lands on the state it was sent from
	version uint64
}

// NewSession creates an empty session with no group selected
func NewSession(api API) *Session {
	return &Session{api: api}
}

// GroupID returns the selected group id, or "" when none is selected
func (s *Session) GroupID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group == nil {
		return ""
	}
	return s.group.ID
}

// GroupName returns the selected group's name
func (s *Session) GroupName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group == nil {
		return ""
	}
	return s.group.Name
}

// Markers returns a copy of the displayed markers in order: the selected
// group's locations, or the temporary markers when no group is selected.
func (s *Session) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Marker(nil), s.displayed()...)
}

// HasUnsaved reports whether temporary markers are waiting to be saved or discarded
func (s *Session) HasUnsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.temporary) > 0
}

// Select loads a group and shows its markers. Switching away from unsaved
// temporary markers is refused until they are saved or discarded.
func (s *Session) Select(ctx context.Context, groupID string) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	unsaved, version := len(s.temporary) > 0, s.version
	s.mu.Unlock()
	if unsaved {
		return ErrUnsavedTemporary
	}

	group, err := s.api.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == version {
		s.adopt(group)
	}
	return nil
}

// Reload refetches the selected group, discarding any local divergence
func (s *Session) Reload(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	groupID, version := s.selected()
	if groupID == "" {
		return ErrNoGroup
	}

	group, err := s.api.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to reload group: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == version {
		s.adopt(group)
	}
	return nil
}

// Deselect clears the selected group. It does not wait for a pending call;
// that call's response is then dropped.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.group = nil
	s.markers = nil
	s.version++
}

// Move drags the marker at from to position to. The new order is shown
// at once and then pushed to the server; if the push fails the previous
// order is restored and the error returned. A push that fails after the
// view changed again leaves the newer view alone.
func (s *Session) Move(ctx context.Context, from, to int) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	list := s.displayed()
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	if s.group == nil {
		s.temporary = move(s.temporary, from, to)
		s.version++
		s.mu.Unlock()
		return nil
	}

	snapshot := s.markers
	s.markers = move(s.markers, from, to)
	s.version++
	version, groupID := s.version, s.group.ID
	ids := make([]string, len(s.markers))
	for i, m := range s.markers {
		ids[i] = m.ID
	}
	s.mu.Unlock()

	group, err := s.api.ReorderLocations(ctx, groupID, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.version == version {
			s.markers = snapshot
			s.version++
		}
		return fmt.Errorf("failed to reorder locations: %w", err)
	}
	if group != nil && s.version == version {
		s.adopt(group)
	}
	return nil
}

// Add places a marker. With a group selected it is saved at the end of the
// group; otherwise it is held as a temporary marker.
func (s *Session) Add(ctx context.Context, req models.LocationRequest) (Marker, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	groupID, _ := s.selected()
	if groupID == "" {
		marker, err := temporaryMarker(req)
		if err != nil {
			return Marker{}, err
		}
		s.mu.Lock()
		s.temporary = append(s.temporary, marker)
		s.version++
		s.mu.Unlock()
		return marker, nil
	}

	loc, err := s.api.AddLocation(ctx, groupID, req)
	if err != nil {
		return Marker{}, fmt.Errorf("failed to add location: %w", err)
	}
	marker := markerOf(loc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSelected(groupID) {
		s.markers = append(s.markers, marker)
		s.version++
	}
	return marker, nil
}

// Recolor changes the color of the marker at index
func (s *Session) Recolor(ctx context.Context, index int, color string) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	list := s.displayed()
	if index < 0 || index >= len(list) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if s.group == nil {
		defer s.mu.Unlock()
		if !models.IsValidColor(color) {
			return models.ErrInvalidColor
		}
		s.temporary[index].Color = models.NormalizeColor(color)
		s.version++
		return nil
	}
	groupID, locationID := s.group.ID, list[index].ID
	s.mu.Unlock()

	loc, err := s.api.RecolorLocation(ctx, groupID, locationID, color)
	if err != nil {
		return fmt.Errorf("failed to recolor location: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(groupID, locationID); i >= 0 {
		s.markers[i].Color = loc.Color
		s.version++
	}
	return nil
}

// Remove deletes the marker at index
func (s *Session) Remove(ctx context.Context, index int) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	list := s.displayed()
	if index < 0 || index >= len(list) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if s.group == nil {
		s.temporary = append(s.temporary[:index:index], s.temporary[index+1:]...)
		s.version++
		s.mu.Unlock()
		return nil
	}
	groupID, locationID := s.group.ID, list[index].ID
	s.mu.Unlock()

	if err := s.api.DeleteLocation(ctx, groupID, locationID); err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(groupID, locationID); i >= 0 {
		s.markers = append(s.markers[:i:i], s.markers[i+1:]...)
		s.version++
	}
	return nil
}

// SaveTemporary creates a group named name holding the temporary markers
// and selects it. The group and its locations are created in one call.
func (s *Session) SaveTemporary(ctx context.Context, name string) (*models.Group, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	reqs := make([]models.LocationRequest, len(s.temporary))
	for i, m := range s.temporary {
		reqs[i] = m.request()
	}
	s.mu.Unlock()
	if len(reqs) == 0 {
		return nil, ErrNothingToSave
	}

	group, err := s.api.CreateGroup(ctx, name, reqs)
	if err != nil {
		return nil, fmt.Errorf("failed to save temporary markers: %w", err)
	}

	// The group exists on the server now, so it is shown even if the
	// markers were discarded meanwhile.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temporary = nil
	s.adopt(group)
	return group, nil
}

// DiscardTemporary drops all temporary markers
func (s *Session) DiscardTemporary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.temporary) > 0 {
		s.temporary = nil
		s.version++
	}
}

func (s *Session) displayed() []Marker {
	if s.group == nil {
		return s.temporary
	}
	return s.markers
}

// selected returns the selected group id and the current version
func (s *Session) selected() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group == nil {
		return "", s.version
	}
	return s.group.ID, s.version
}

func (s *Session) isSelected(groupID string) bool {
	return s.group != nil && s.group.ID == groupID
}

// indexOf finds a marker of the selected group by id, or -1
func (s *Session) indexOf(groupID, locationID string) int {
	if !s.isSelected(groupID) {
		return -1
	}
	for i, m := range s.markers {
		if m.ID == locationID {
			return i
		}
	}
	return -1
}

func (s *Session) adopt(group *models.Group) {
	s.group = group
	s.markers = make([]Marker, len(group.Locations))
	for i, loc := range group.Locations {
		s.markers[i] = markerOf(loc)
	}
	s.version++
}

// temporaryMarker validates req the same way the server does. The location
// is never stored; only its normalized fields are kept.
func temporaryMarker(req models.LocationRequest) (Marker, error) {
	if req.Lat == nil {
		return Marker{}, models.ErrInvalidLatitude
	}
	if req.Lng == nil {
		return Marker{}, models.ErrInvalidLongitude
	}
	loc, err := models.NewLocation("", req.Input(), 0)
	if err != nil {
		return Marker{}, err
	}
	marker := markerOf(loc)
	marker.ID = ""
	marker.Temporary = true
	return marker, nil
}

// move removes the element at from and reinserts it at to
func move(list []Marker, from, to int) []Marker {
	out := make([]Marker, 0, len(list))
	item := list[from]
	rest := append(append([]Marker(nil), list[:from]...), list[from+1:]...)
	out = append(out, rest[:to]...)
	out = append(out, item)
	return append(out, rest[to:]...)
}
