package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mapgroups/server/internal/models"
)

const locationColumns = `l.id, l.group_id, l.latitude, l.longitude, l.title, l.color, l.order_index, l.created_at`

// GroupRepository implements GroupRepo for PostgreSQL/SQLite
type GroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts the group and its initial locations as one unit
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	return withTx(ctx, r.db, "INSERT", "location_groups", func(tx *sql.Tx) error {
		query := `INSERT INTO location_groups (id, device_id, name, created_at, updated_at)
				  VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, query,
			group.ID, group.DeviceID, group.Name, group.CreatedAt, group.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		return insertLocations(ctx, tx, group.Locations)
	})
}

func (r *GroupRepository) GetAllForDevice(ctx context.Context, deviceID string) ([]*models.Group, error) {
	query := `SELECT id, device_id, name, created_at, updated_at
			  FROM location_groups WHERE device_id = $1 ORDER BY created_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []*models.Group{}
	byID := make(map[string]*models.Group)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
		byID[g.ID] = g
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(groups) == 0 {
		return groups, nil
	}

	locQuery := `SELECT ` + locationColumns + `
			  FROM locations l
			  INNER JOIN location_groups g ON g.id = l.group_id
			  WHERE g.device_id = $1
			  ORDER BY l.order_index ASC, l.created_at ASC`

	locRows, err := r.db.QueryContext(ctx, locQuery, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer locRows.Close()

	for locRows.Next() {
		loc, err := scanLocation(locRows)
		if err != nil {
			return nil, err
		}
		if g, ok := byID[loc.GroupID]; ok {
			g.Locations = append(g.Locations, loc)
		}
	}
	return groups, locRows.Err()
}

// GetForDevice returns the group with its ordered locations, or nil when the
// group does not exist or belongs to another device.
func (r *GroupRepository) GetForDevice(ctx context.Context, id, deviceID string) (*models.Group, error) {
	query := `SELECT id, device_id, name, created_at, updated_at
			  FROM location_groups WHERE id = $1 AND device_id = $2`

	return r.getOne(ctx, query, id, deviceID)
}

// GetMostRecentForDevice returns the device's newest group, or nil when it owns none
func (r *GroupRepository) GetMostRecentForDevice(ctx context.Context, deviceID string) (*models.Group, error) {
	query := `SELECT id, device_id, name, created_at, updated_at
			  FROM location_groups WHERE device_id = $1 ORDER BY created_at DESC, id ASC LIMIT 1`

	return r.getOne(ctx, query, deviceID)
}

func (r *GroupRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Group, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	locations, err := r.getLocations(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.Locations = locations
	return g, nil
}

func (r *GroupRepository) getLocations(ctx context.Context, groupID string) ([]*models.Location, error) {
	query := `SELECT ` + locationColumns + `
			  FROM locations l WHERE l.group_id = $1
			  ORDER BY l.order_index ASC, l.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}
	defer rows.Close()

	locations := []*models.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// Update renames the group when name is non-nil and replaces its locations
// when locations is non-nil. Both changes commit together.
func (r *GroupRepository) Update(ctx context.Context, id, deviceID string, name *string, locations []*models.Location) error {
	return withTx(ctx, r.db, "UPDATE", "location_groups", func(tx *sql.Tx) error {
		if err := ensureGroupOwned(ctx, tx, id, deviceID); err != nil {
			return err
		}

		if name != nil {
			query := `UPDATE location_groups SET name = $1, updated_at = $2 WHERE id = $3`
			if _, err := tx.ExecContext(ctx, query, *name, time.Now().UTC(), id); err != nil {
				return fmt.Errorf("failed to rename group: %w", err)
			}
		}

		if locations != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE group_id = $1`, id); err != nil {
				return fmt.Errorf("failed to clear locations: %w", err)
			}
			if err := insertLocations(ctx, tx, locations); err != nil {
				return err
			}
		}

		return touchGroup(ctx, tx, id)
	})
}

// Delete removes the group and all of its locations
func (r *GroupRepository) Delete(ctx context.Context, id, deviceID string) error {
	return withTx(ctx, r.db, "DELETE", "location_groups", func(tx *sql.Tx) error {
		if err := ensureGroupOwned(ctx, tx, id, deviceID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE group_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete locations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM location_groups WHERE id = $1 AND device_id = $2`, id, deviceID); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
}

func insertLocations(ctx context.Context, tx *sql.Tx, locations []*models.Location) error {
	query := `INSERT INTO locations (id, group_id, latitude, longitude, title, color, order_index, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, loc := range locations {
		if _, err := tx.ExecContext(ctx, query,
			loc.ID, loc.GroupID, loc.Latitude, loc.Longitude, loc.Title, loc.Color, loc.OrderIndex, loc.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	g := &models.Group{Locations: []*models.Location{}}
	if err := row.Scan(&g.ID, &g.DeviceID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return g, nil
}

func scanLocation(row rowScanner) (*models.Location, error) {
	var loc models.Location
	if err := row.Scan(
		&loc.ID, &loc.GroupID, &loc.Latitude, &loc.Longitude,
		&loc.Title, &loc.Color, &loc.OrderIndex, &loc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &loc, nil
}
