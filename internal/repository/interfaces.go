package repository

import (
	"context"
	"time"

	"github.com/mapgroups/server/internal/models"
)

// DeviceRepo defines the interface for device persistence operations
type DeviceRepo interface {
	GetByID(ctx context.Context, id string) (*models.Device, error)
	Add(ctx context.Context, device *models.Device) error
	UpdateLastSeen(ctx context.Context, id string) error
	DeleteInactiveWithoutGroups(ctx context.Context, before time.Time) (int64, error)
}

// GroupRepo defines the interface for location group persistence operations.
// Every operation is scoped by the owning device; a group owned by another
// device behaves exactly like a missing one.
type GroupRepo interface {
	Create(ctx context.Context, group *models.Group) error
	GetAllForDevice(ctx context.Context, deviceID string) ([]*models.Group, error)
	GetForDevice(ctx context.Context, id, deviceID string) (*models.Group, error)
	GetMostRecentForDevice(ctx context.Context, deviceID string) (*models.Group, error)
	Update(ctx context.Context, id, deviceID string, name *string, locations []*models.Location) error
	Delete(ctx context.Context, id, deviceID string) error
}

// LocationRepo defines the interface for location persistence operations
type LocationRepo interface {
	Add(ctx context.Context, deviceID string, location *models.Location) error
	Reorder(ctx context.Context, groupID, deviceID string, locationIDs []string) error
	Delete(ctx context.Context, groupID, locationID, deviceID string) error
	UpdateColor(ctx context.Context, groupID, locationID, deviceID, color string) (*models.Location, error)
}
