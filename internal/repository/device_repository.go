package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mapgroups/server/internal/models"
)

// DeviceRepository implements DeviceRepo for PostgreSQL/SQLite
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	query := `SELECT id, created_at, last_seen_at FROM devices WHERE id = $1`

	var device models.Device
	err := r.db.QueryRowContext(ctx, query, id).Scan(&device.ID, &device.CreatedAt, &device.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return &device, nil
}

func (r *DeviceRepository) Add(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (id, created_at, last_seen_at) VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, device.ID, device.CreatedAt, device.LastSeenAt); err != nil {
		return fmt.Errorf("failed to add device: %w", err)
	}
	return nil
}

func (r *DeviceRepository) UpdateLastSeen(ctx context.Context, id string) error {
	query := `UPDATE devices SET last_seen_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update device last seen: %w", err)
	}
	return nil
}

// DeleteInactiveWithoutGroups removes devices not seen since before that own no groups
func (r *DeviceRepository) DeleteInactiveWithoutGroups(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM devices
			  WHERE last_seen_at < $1
			  AND NOT EXISTS (SELECT 1 FROM location_groups g WHERE g.device_id = devices.id)`

	result, err := r.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive devices: %w", err)
	}
	return result.RowsAffected()
}
