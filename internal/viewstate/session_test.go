package viewstate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapgroups/server/internal/client"
	"github.com/mapgroups/server/internal/models"
)

var _ API = (*client.Client)(nil)

var errOffline = errors.New("offline")

// fakeAPI keeps groups in memory and can be told to fail the next call.
// When reorderRelease is set, ReorderLocations signals reorderStarted and
// waits for the release before answering.
type fakeAPI struct {
	groups   map[string]*models.Group
	fail     error
	reorders [][]string
	created  []string

	reorderStarted chan struct{}
	reorderRelease chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{groups: map[string]*models.Group{}}
}

func (f *fakeAPI) seed(name string, titles ...string) *models.Group {
	g := &models.Group{ID: uuid.New().String(), Name: name}
	for i, title := range titles {
		g.Locations = append(g.Locations, &models.Location{
			ID: uuid.New().String(), GroupID: g.ID, Title: title,
			Color: models.DefaultLocationColor, OrderIndex: i,
		})
	}
	f.groups[g.ID] = g
	return g
}

func (f *fakeAPI) err() error {
	err := f.fail
	f.fail = nil
	return err
}

func (f *fakeAPI) group(id string) (*models.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, models.ErrGroupNotFound
	}
	return g, nil
}

func (f *fakeAPI) clone(g *models.Group) *models.Group {
	c := *g
	c.Locations = make([]*models.Location, len(g.Locations))
	for i, loc := range g.Locations {
		l := *loc
		c.Locations[i] = &l
	}
	return &c
}

func (f *fakeAPI) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	g, err := f.group(groupID)
	if err != nil {
		return nil, err
	}
	return f.clone(g), nil
}

func (f *fakeAPI) CreateGroup(_ context.Context, name string, locations []models.LocationRequest) (*models.Group, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	g := &models.Group{ID: uuid.New().String(), Name: name}
	for i, req := range locations {
		loc, err := models.NewLocation(g.ID, req.Input(), i)
		if err != nil {
			return nil, err
		}
		g.Locations = append(g.Locations, loc)
	}
	f.groups[g.ID] = g
	f.created = append(f.created, name)
	return f.clone(g), nil
}

func (f *fakeAPI) AddLocation(_ context.Context, groupID string, req models.LocationRequest) (*models.Location, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	g, err := f.group(groupID)
	if err != nil {
		return nil, err
	}
	loc, err := models.NewLocation(groupID, req.Input(), len(g.Locations))
	if err != nil {
		return nil, err
	}
	g.Locations = append(g.Locations, loc)
	l := *loc
	return &l, nil
}

func (f *fakeAPI) ReorderLocations(_ context.Context, groupID string, ids []string) (*models.Group, error) {
	if f.reorderRelease != nil {
		f.reorderStarted <- struct{}{}
		<-f.reorderRelease
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	g, err := f.group(groupID)
	if err != nil {
		return nil, err
	}
	f.reorders = append(f.reorders, ids)

	byID := map[string]*models.Location{}
	for _, loc := range g.Locations {
		byID[loc.ID] = loc
	}
	ordered := make([]*models.Location, 0, len(ids))
	for i, id := range ids {
		loc, ok := byID[id]
		if !ok {
			return nil, models.ErrLocationNotFound
		}
		loc.OrderIndex = i
		ordered = append(ordered, loc)
	}
	g.Locations = ordered
	return f.clone(g), nil
}

func (f *fakeAPI) RecolorLocation(_ context.Context, groupID, locationID, color string) (*models.Location, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	g, err := f.group(groupID)
	if err != nil {
		return nil, err
	}
	for _, loc := range g.Locations {
		if loc.ID == locationID {
			loc.Color = models.NormalizeColor(color)
			l := *loc
			return &l, nil
		}
	}
	return nil, models.ErrLocationNotFound
}

func (f *fakeAPI) DeleteLocation(_ context.Context, groupID, locationID string) error {
	if err := f.err(); err != nil {
		return err
	}
	g, err := f.group(groupID)
	if err != nil {
		return err
	}
	for i, loc := range g.Locations {
		if loc.ID == locationID {
			g.Locations = append(g.Locations[:i], g.Locations[i+1:]...)
			return nil
		}
	}
	return models.ErrLocationNotFound
}

func titles(markers []Marker) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = m.Title
	}
	return out
}

func serverTitles(g *models.Group) []string {
	out := make([]string, len(g.Locations))
	for i, loc := range g.Locations {
		out[i] = loc.Title
	}
	return out
}

func at(lat, lng float64, title string) models.LocationRequest {
	return models.LocationRequest{Lat: &lat, Lng: &lng, Title: title}
}

func TestSessionSelect(t *testing.T) {
	api := newFakeAPI()
	group := api.seed("Trip", "A", "B")
	s := NewSession(api)
	ctx := context.Background()

	assert.Empty(t, s.GroupID())
	assert.Empty(t, s.Markers())

	require.NoError(t, s.Select(ctx, group.ID))
	assert.Equal(t, group.ID, s.GroupID())
	assert.Equal(t, "Trip", s.GroupName())
	assert.Equal(t, []string{"A", "B"}, titles(s.Markers()))

	err := s.Select(ctx, uuid.New().String())
	require.ErrorIs(t, err, models.ErrGroupNotFound)
	assert.Equal(t, group.ID, s.GroupID(), "failed select keeps the current group")

	s.Deselect()
	assert.Empty(t, s.GroupID())
	assert.ErrorIs(t, s.Reload(ctx), ErrNoGroup)
}

func TestSessionMove(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"B", "C", "A", "D"}},
		{"backward", 3, 1, []string{"A", "D", "B", "C"}},
		{"to end", 1, 3, []string{"A", "C", "D", "B"}},
		{"to start", 2, 0, []string{"C", "A", "B", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			group := api.seed("Route", "A", "B", "C", "D")
			s := NewSession(api)
			require.NoError(t, s.Select(ctx, group.ID))

			require.NoError(t, s.Move(ctx, tt.from, tt.to))
			assert.Equal(t, tt.want, titles(s.Markers()))
			assert.Equal(t, tt.want, serverTitles(api.groups[group.ID]))
			require.Len(t, api.reorders, 1)
			assert.Len(t, api.reorders[0], 4, "the full order is pushed")
		})
	}

	t.Run("failed push reverts", func(t *testing.T) {
		api := newFakeAPI()
		group := api.seed("Route", "A", "B", "C")
		s := NewSession(api)
		require.NoError(t, s.Select(ctx, group.ID))

		api.fail = errOffline
		err := s.Move(ctx, 0, 2)
		require.ErrorIs(t, err, errOffline)
		assert.Equal(t, []string{"A", "B", "C"}, titles(s.Markers()))
		assert.Equal(t, []string{"A", "B", "C"}, serverTitles(api.groups[group.ID]))
	})

	t.Run("same index is a no-op", func(t *testing.T) {
		api := newFakeAPI()
		group := api.seed("Route", "A", "B")
		s := NewSession(api)
		require.NoError(t, s.Select(ctx, group.ID))

		require.NoError(t, s.Move(ctx, 1, 1))
		assert.Empty(t, api.reorders)
	})

	t.Run("out of range", func(t *testing.T) {
		api := newFakeAPI()
		group := api.seed("Route", "A", "B")
		s := NewSession(api)
		require.NoError(t, s.Select(ctx, group.ID))

		assert.ErrorIs(t, s.Move(ctx, 0, 2), ErrIndexOutOfRange)
		assert.ErrorIs(t, s.Move(ctx, -1, 0), ErrIndexOutOfRange)
	})
}

func TestSessionMoveWhilePushPending(t *testing.T) {
	ctx := context.Background()

	// startMove selects a group of A, B, C and drags A to the end, returning
	// once the reorder call is waiting on the server
	startMove := func(t *testing.T, fail error) (*fakeAPI, *Session, string, <-chan error) {
		api := newFakeAPI()
		group := api.seed("Route", "A", "B", "C")
		s := NewSession(api)
		require.NoError(t, s.Select(ctx, group.ID))

		api.fail = fail
		api.reorderStarted = make(chan struct{})
		api.reorderRelease = make(chan struct{})
		done := make(chan error, 1)
		go func() { done <- s.Move(ctx, 0, 2) }()

		select {
		case <-api.reorderStarted:
		case <-time.After(time.Second):
			t.Fatal("reorder was never pushed")
		}
		return api, s, group.ID, done
	}

	t.Run("readers see the new order at once", func(t *testing.T) {
		api, s, groupID, done := startMove(t, nil)

		markers := make(chan []Marker, 1)
		go func() { markers <- s.Markers() }()
		select {
		case m := <-markers:
			assert.Equal(t, []string{"B", "C", "A"}, titles(m))
		case <-time.After(time.Second):
			t.Fatal("Markers waited for the reorder response")
		}
		assert.Equal(t, groupID, s.GroupID())

		close(api.reorderRelease)
		require.NoError(t, <-done)
		assert.Equal(t, []string{"B", "C", "A"}, titles(s.Markers()))
		assert.Equal(t, []string{"B", "C", "A"}, serverTitles(api.groups[groupID]))
	})

	t.Run("failure reverts while the view is unchanged", func(t *testing.T) {
		api, s, _, done := startMove(t, errOffline)
		assert.Equal(t, []string{"B", "C", "A"}, titles(s.Markers()))

		close(api.reorderRelease)
		require.ErrorIs(t, <-done, errOffline)
		assert.Equal(t, []string{"A", "B", "C"}, titles(s.Markers()))
	})

	t.Run("failure after deselect does not restore the old group", func(t *testing.T) {
		api, s, _, done := startMove(t, errOffline)
		s.Deselect()

		close(api.reorderRelease)
		require.ErrorIs(t, <-done, errOffline)
		assert.Empty(t, s.GroupID())
		assert.Empty(t, s.Markers())
	})

	t.Run("success after deselect is not adopted", func(t *testing.T) {
		api, s, groupID, done := startMove(t, nil)
		s.Deselect()

		close(api.reorderRelease)
		require.NoError(t, <-done)
		assert.Empty(t, s.GroupID())
		assert.Empty(t, s.Markers())
		assert.Equal(t, []string{"B", "C", "A"}, serverTitles(api.groups[groupID]))
	})
}

func TestSessionEditsSelectedGroup(t *testing.T) {
	api := newFakeAPI()
	group := api.seed("Edits", "A", "B")
	s := NewSession(api)
	ctx := context.Background()
	require.NoError(t, s.Select(ctx, group.ID))

	marker, err := s.Add(ctx, at(1, 2, "C"))
	require.NoError(t, err)
	assert.NotEmpty(t, marker.ID)
	assert.False(t, marker.Temporary)
	assert.Equal(t, []string{"A", "B", "C"}, titles(s.Markers()))

	require.NoError(t, s.Recolor(ctx, 2, "#00ff00"))
	assert.Equal(t, "#00FF00", s.Markers()[2].Color)

	require.NoError(t, s.Remove(ctx, 0))
	assert.Equal(t, []string{"B", "C"}, titles(s.Markers()))
	assert.Equal(t, []string{"B", "C"}, serverTitles(api.groups[group.ID]))

	api.fail = errOffline
	require.ErrorIs(t, s.Remove(ctx, 0), errOffline)
	assert.Equal(t, []string{"B", "C"}, titles(s.Markers()), "failed delete keeps the marker")

	assert.ErrorIs(t, s.Recolor(ctx, 5, "#000000"), ErrIndexOutOfRange)
}

func TestSessionTemporaryMarkers(t *testing.T) {
	ctx := context.Background()

	t.Run("held locally until saved", func(t *testing.T) {
		api := newFakeAPI()
		s := NewSession(api)

		first, err := s.Add(ctx, at(48.85, 2.35, "  Louvre  "))
		require.NoError(t, err)
		assert.True(t, first.Temporary)
		assert.Empty(t, first.ID)
		assert.Equal(t, "Louvre", first.Title)
		assert.Equal(t, models.DefaultLocationColor, first.Color)

		_, err = s.Add(ctx, at(48.86, 2.33, "Orsay"))
		require.NoError(t, err)
		require.NoError(t, s.Move(ctx, 1, 0))
		require.NoError(t, s.Recolor(ctx, 1, "#ea4335"))

		assert.True(t, s.HasUnsaved())
		assert.Empty(t, api.groups, "nothing reaches the server before save")

		group, err := s.SaveTemporary(ctx, "Museums")
		require.NoError(t, err)
		assert.Equal(t, []string{"Museums"}, api.created)
		assert.Equal(t, []string{"Orsay", "Louvre"}, serverTitles(group))
		assert.Equal(t, "#EA4335", group.Locations[1].Color)

		assert.False(t, s.HasUnsaved())
		assert.Equal(t, group.ID, s.GroupID())
		assert.Equal(t, []string{"Orsay", "Louvre"}, titles(s.Markers()))
	})

	t.Run("failed save keeps the markers", func(t *testing.T) {
		api := newFakeAPI()
		s := NewSession(api)
		_, err := s.Add(ctx, at(0, 0, "A"))
		require.NoError(t, err)

		api.fail = errOffline
		_, err = s.SaveTemporary(ctx, "Later")
		require.ErrorIs(t, err, errOffline)
		assert.True(t, s.HasUnsaved())
		assert.Empty(t, s.GroupID())
	})

	t.Run("select is refused until discarded", func(t *testing.T) {
		api := newFakeAPI()
		group := api.seed("Existing", "X")
		s := NewSession(api)
		_, err := s.Add(ctx, at(0, 0, "A"))
		require.NoError(t, err)

		assert.ErrorIs(t, s.Select(ctx, group.ID), ErrUnsavedTemporary)

		s.DiscardTemporary()
		assert.False(t, s.HasUnsaved())
		require.NoError(t, s.Select(ctx, group.ID))
		assert.Equal(t, []string{"X"}, titles(s.Markers()))
	})

	t.Run("remove", func(t *testing.T) {
		s := NewSession(newFakeAPI())
		_, err := s.Add(ctx, at(0, 0, "A"))
		require.NoError(t, err)
		_, err = s.Add(ctx, at(0, 0, "B"))
		require.NoError(t, err)

		require.NoError(t, s.Remove(ctx, 0))
		assert.Equal(t, []string{"B"}, titles(s.Markers()))
	})

	t.Run("invalid input", func(t *testing.T) {
		s := NewSession(newFakeAPI())

		_, err := s.Add(ctx, at(91, 0, "A"))
		assert.ErrorIs(t, err, models.ErrInvalidLatitude)
		lat := 1.0
		_, err = s.Add(ctx, models.LocationRequest{Title: "A"})
		assert.ErrorIs(t, err, models.ErrInvalidLatitude)
		_, err = s.Add(ctx, models.LocationRequest{Lat: &lat, Title: "A"})
		assert.ErrorIs(t, err, models.ErrInvalidLongitude)
		_, err = s.Add(ctx, at(0, 181, "A"))
		assert.ErrorIs(t, err, models.ErrInvalidLongitude)
		_, err = s.Add(ctx, at(0, 0, "   "))
		assert.ErrorIs(t, err, models.ErrLocationTitleRequired)
		_, err = s.Add(ctx, at(0, 0, strings.Repeat("x", 201)))
		assert.ErrorIs(t, err, models.ErrLocationTitleTooLong)

		req := at(0, 0, "A")
		req.Color = "red"
		_, err = s.Add(ctx, req)
		assert.ErrorIs(t, err, models.ErrInvalidColor)

		assert.False(t, s.HasUnsaved())
		_, err = s.SaveTemporary(ctx, "Empty")
		assert.ErrorIs(t, err, ErrNothingToSave)
	})
}
