package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mapgroups/server/internal/models"
)

// LocationRepository implements LocationRepo for PostgreSQL/SQLite.
// Each mutation re-checks group ownership inside its own transaction.
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Add appends the location after the group's current last position and sets
// location.OrderIndex accordingly.
func (r *LocationRepository) Add(ctx context.Context, deviceID string, location *models.Location) error {
	return withTx(ctx, r.db, "INSERT", "locations", func(tx *sql.Tx) error {
		if err := ensureGroupOwned(ctx, tx, location.GroupID, deviceID); err != nil {
			return err
		}

		var maxIndex sql.NullInt64
		query := `SELECT MAX(order_index) FROM locations WHERE group_id = $1`
		if err := tx.QueryRowContext(ctx, query, location.GroupID).Scan(&maxIndex); err != nil {
			return fmt.Errorf("failed to get max order index: %w", err)
		}
		location.OrderIndex = 0
		if maxIndex.Valid {
			location.OrderIndex = int(maxIndex.Int64) + 1
		}

		if err := insertLocations(ctx, tx, []*models.Location{location}); err != nil {
			return err
		}
		return touchGroup(ctx, tx, location.GroupID)
	})
}

// Reorder assigns order_index by position in locationIDs. Locations of the
// group missing from the list keep their relative order after the listed ones.
// An id outside the group rolls back the whole reorder.
func (r *LocationRepository) Reorder(ctx context.Context, groupID, deviceID string, locationIDs []string) error {
	return withTx(ctx, r.db, "UPDATE", "locations", func(tx *sql.Tx) error {
		if err := ensureGroupOwned(ctx, tx, groupID, deviceID); err != nil {
			return err
		}

		current, err := orderedLocationIDs(ctx, tx, groupID)
		if err != nil {
			return err
		}

		query := `UPDATE locations SET order_index = $1 WHERE id = $2 AND group_id = $3`
		seen := make(map[string]bool, len(locationIDs))
		for i, id := range locationIDs {
			if seen[id] {
				return models.ErrDuplicateLocationID
			}
			seen[id] = true

			result, err := tx.ExecContext(ctx, query, i, id, groupID)
			if err != nil {
				return fmt.Errorf("failed to reorder location: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to reorder location: %w", err)
			}
			if affected == 0 {
				return models.ErrLocationNotFound
			}
		}

		next := len(locationIDs)
		for _, id := range current {
			if seen[id] {
				continue
			}
			if _, err := tx.ExecContext(ctx, query, next, id, groupID); err != nil {
				return fmt.Errorf("failed to reorder location: %w", err)
			}
			next++
		}

		return touchGroup(ctx, tx, groupID)
	})
}

func (r *LocationRepository) Delete(ctx context.Context, groupID, locationID, deviceID string) error {
	return withTx(ctx, r.db, "DELETE", "locations", func(tx *sql.Tx) error {
		if err := ensureGroupOwned(ctx, tx, groupID, deviceID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = $1 AND group_id = $2`, locationID, groupID)
		if err != nil {
			return fmt.Errorf("failed to delete location: %w", err)
		}
		if affected, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to delete location: %w", err)
		} else if affected == 0 {
			return models.ErrLocationNotFound
		}

		return touchGroup(ctx, tx, groupID)
	})
}

func (r *LocationRepository) UpdateColor(ctx context.Context, groupID, locationID, deviceID, color string) (*models.Location, error) {
	var location *models.Location
	err := withTx(ctx, r.db, "UPDATE", "locations", func(tx *sql.Tx) error {
		if err := ensureGroupOwned(ctx, tx, groupID, deviceID); err != nil {
			return err
		}

		query := `SELECT ` + locationColumns + ` FROM locations l WHERE l.id = $1 AND l.group_id = $2`
		loc, err := scanLocation(tx.QueryRowContext(ctx, query, locationID, groupID))
		if err == sql.ErrNoRows {
			return models.ErrLocationNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get location: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE locations SET color = $1 WHERE id = $2`, color, locationID); err != nil {
			return fmt.Errorf("failed to update location color: %w", err)
		}
		loc.Color = color
		location = loc

		return touchGroup(ctx, tx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return location, nil
}

func orderedLocationIDs(ctx context.Context, tx *sql.Tx, groupID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM locations WHERE group_id = $1 ORDER BY order_index ASC, created_at ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list location ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
