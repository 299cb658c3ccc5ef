package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestDevice(t *testing.T, db *sql.DB) *models.Device {
	t.Helper()
	device := models.NewDevice()
	require.NoError(t, repository.NewDeviceRepository(db).Add(context.Background(), device))
	return device
}

func setupGroupService(t *testing.T) (*GroupService, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewGroupService(repository.NewGroupRepository(db), repository.NewLocationRepository(db), nil)
	return svc, db
}

func stops(titles ...string) []models.LocationInput {
	inputs := make([]models.LocationInput, len(titles))
	for i, title := range titles {
		inputs[i] = models.LocationInput{Latitude: float64(i), Longitude: float64(-i), Title: title}
	}
	return inputs
}

func TestGroupService_CreateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates group with locations in input order", func(t *testing.T) {
		svc, db := setupGroupService(t)
		device := setupTestDevice(t, db)

		group, err := svc.CreateGroup(ctx, device.ID, "  Weekend  ", stops("A", "B", "C"))
		require.NoError(t, err)
		assert.Equal(t, "Weekend", group.Name)

		got, err := svc.GetGroup(ctx, group.ID, device.ID)
		require.NoError(t, err)
		require.Len(t, got.Locations, 3)
		assert.Equal(t, "A", got.Locations[0].Title)
		assert.Equal(t, "C", got.Locations[2].Title)
	})

	t.Run("rejects invalid location without creating the group", func(t *testing.T) {
		svc, db := setupGroupService(t)
		device := setupTestDevice(t, db)

		inputs := stops("A", "B")
		inputs[1].Latitude = 91

		_, err := svc.CreateGroup(ctx, device.ID, "Bad", inputs)
		assert.ErrorIs(t, err, models.ErrInvalidLatitude)

		groups, err := svc.GetGroups(ctx, device.ID)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		svc, db := setupGroupService(t)
		device := setupTestDevice(t, db)

		_, err := svc.CreateGroup(ctx, device.ID, "   ", nil)
		assert.ErrorIs(t, err, models.ErrGroupNameRequired)
	})
}

func TestGroupService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, db := setupGroupService(t)
	owner := setupTestDevice(t, db)
	other := setupTestDevice(t, db)

	group, err := svc.CreateGroup(ctx, owner.ID, "Mine", stops("A"))
	require.NoError(t, err)
	locationID := group.Locations[0].ID

	t.Run("get reports not found", func(t *testing.T) {
		_, err := svc.GetGroup(ctx, group.ID, other.ID)
		assert.ErrorIs(t, err, models.ErrGroupNotFound)
	})

	t.Run("update reports not found", func(t *testing.T) {
		name := "Stolen"
		_, err := svc.UpdateGroup(ctx, group.ID, other.ID, &name, nil)
		assert.ErrorIs(t, err, models.ErrGroupNotFound)
	})

	t.Run("add location reports not found", func(t *testing.T) {
		_, err := svc.AddLocation(ctx, group.ID, other.ID, models.LocationInput{Title: "X"}, SourceManual)
		assert.ErrorIs(t, err, models.ErrGroupNotFound)
	})

	t.Run("recolor reports not found", func(t *testing.T) {
		color := "#000000"
		_, err := svc.UpdateLocation(ctx, group.ID, locationID, other.ID, &color)
		assert.ErrorIs(t, err, models.ErrGroupNotFound)
	})

	t.Run("delete reports not found and keeps the group", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteGroup(ctx, group.ID, other.ID), models.ErrGroupNotFound)

		got, err := svc.GetGroup(ctx, group.ID, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mine", got.Name)
		assert.Len(t, got.Locations, 1)
	})
}

func TestGroupService_UpdateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("renames without touching locations", func(t *testing.T) {
		svc, db := setupGroupService(t)
		device := setupTestDevice(t, db)
		group, err := svc.CreateGroup(ctx, device.ID, "Old", stops("A", "B"))
		require.NoError(t, err)

		name := "New"
		got, err := svc.UpdateGroup(ctx, group.ID, device.ID, &name, nil)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, group.LocationIDs(), got.LocationIDs())
	})

	t.Run("replaces locations", func(t *testing.T) {
		svc, db := setupGroupService(t)
		device := setupTestDevice(t, db)
		group, err := svc.CreateGroup(ctx, device.ID, "Trip", stops("A", "B"))
		require.NoError(t, err)

		got, err := svc.UpdateGroup(ctx, group.ID, device.ID, nil, stops("X", "Y", "Z"))
		require.NoError(t, err)
		require.Len(t, got.Locations, 3)
		assert.Equal(t, "X", got.Locations[0].Title)
		assert.Equal(t, "Trip", got.Name)
	})

	t.Run("rejects too long name", func(t *testing.T) {
		svc, db := setupGroupService(t)
		device := setupTestDevice(t, db)
		group, err := svc.CreateGroup(ctx, device.ID, "Trip", nil)
		require.NoError(t, err)

		long := strings.Repeat("a", 101)
		_, err = svc.UpdateGroup(ctx, group.ID, device.ID, &long, nil)
		assert.ErrorIs(t, err, models.ErrGroupNameTooLong)
	})
}

func TestGroupService_UpdateLocation(t *testing.T) {
	ctx := context.Background()
	svc, db := setupGroupService(t)
	device := setupTestDevice(t, db)
	group, err := svc.CreateGroup(ctx, device.ID, "Colors", stops("A"))
	require.NoError(t, err)
	locationID := group.Locations[0].ID

	t.Run("no fields is rejected", func(t *testing.T) {
		_, err := svc.UpdateLocation(ctx, group.ID, locationID, device.ID, nil)
		assert.ErrorIs(t, err, models.ErrNoValidUpdates)
	})

	t.Run("invalid color is rejected", func(t *testing.T) {
		color := "red"
		_, err := svc.UpdateLocation(ctx, group.ID, locationID, device.ID, &color)
		assert.ErrorIs(t, err, models.ErrInvalidColor)
	})

	t.Run("color is stored upper case", func(t *testing.T) {
		color := "#ea4335"
		loc, err := svc.UpdateLocation(ctx, group.ID, locationID, device.ID, &color)
		require.NoError(t, err)
		assert.Equal(t, "#EA4335", loc.Color)
	})

	t.Run("unknown location is not found", func(t *testing.T) {
		color := "#000000"
		_, err := svc.UpdateLocation(ctx, group.ID, models.NewDevice().ID, device.ID, &color)
		assert.ErrorIs(t, err, models.ErrLocationNotFound)
	})
}

func TestGroupService_ReorderLocations(t *testing.T) {
	ctx := context.Background()
	svc, db := setupGroupService(t)
	device := setupTestDevice(t, db)
	group, err := svc.CreateGroup(ctx, device.ID, "Route", stops("A", "B", "C"))
	require.NoError(t, err)
	ids := group.LocationIDs()

	t.Run("applies the new order", func(t *testing.T) {
		require.NoError(t, svc.ReorderLocations(ctx, group.ID, device.ID, []string{ids[2], ids[0], ids[1]}))

		got, err := svc.GetGroup(ctx, group.ID, device.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[0], ids[1]}, got.LocationIDs())
	})

	t.Run("counts rejected reorders", func(t *testing.T) {
		before := testutil.ToFloat64(observability.ReorderFailures)

		err := svc.ReorderLocations(ctx, group.ID, device.ID, []string{ids[0], models.NewDevice().ID})
		assert.ErrorIs(t, err, models.ErrLocationNotFound)
		assert.Equal(t, before+1, testutil.ToFloat64(observability.ReorderFailures))

		got, err := svc.GetGroup(ctx, group.ID, device.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[0], ids[1]}, got.LocationIDs())
	})
}
