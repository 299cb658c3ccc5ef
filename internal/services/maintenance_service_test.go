package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/repository"
)

func TestMaintenanceService_RunNow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	devices := repository.NewDeviceRepository(db)

	stale := models.NewDevice()
	stale.LastSeenAt = time.Now().UTC().Add(-400 * 24 * time.Hour)
	require.NoError(t, devices.Add(ctx, stale))

	staleWithGroup := models.NewDevice()
	staleWithGroup.LastSeenAt = stale.LastSeenAt
	require.NoError(t, devices.Add(ctx, staleWithGroup))
	group, err := models.NewGroup(staleWithGroup.ID, "Kept")
	require.NoError(t, err)
	require.NoError(t, repository.NewGroupRepository(db).Create(ctx, group))

	active := setupTestDevice(t, db)

	svc := NewMaintenanceService(devices, time.Hour, 180*24*time.Hour)
	removed := svc.RunNow(ctx)
	assert.Equal(t, int64(1), removed)

	got, err := devices.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, id := range []string{staleWithGroup.ID, active.ID} {
		got, err := devices.GetByID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, got, id)
	}

	status := svc.GetStatus()
	assert.False(t, status.Running)
	assert.Equal(t, int64(1), status.DevicesRemoved)
	assert.Empty(t, status.Errors)
	assert.False(t, status.LastRun.IsZero())
}

func TestMaintenanceService_Serve(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMaintenanceService(repository.NewDeviceRepository(db), time.Hour, 24*time.Hour)
	assert.Equal(t, "maintenance", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return !svc.GetStatus().LastRun.IsZero()
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("maintenance service did not stop")
	}
}
