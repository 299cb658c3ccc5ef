package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
)

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func withTx(ctx context.Context, db *sql.DB, operation, table string, fn func(tx *sql.Tx) error) (err error) {
	ctx, span := observability.StartDBSpan(ctx, dbSystem(db), operation, table)
	defer span.End()
	defer func() {
		observability.RecordError(span, err)
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				observability.Ctx(ctx).Error().
					Err(rbErr).
					AnErr("original_error", err).
					Str("operation", operation).
					Msg("Transaction rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// dbSystem names the database engine behind db for span attributes
func dbSystem(db *sql.DB) string {
	switch db.Driver().(type) {
	case *sqlite3.SQLiteDriver:
		return "sqlite"
	case *pq.Driver:
		return "postgresql"
	default:
		return "other_sql"
	}
}

// ensureGroupOwned fails with ErrGroupNotFound unless the group exists and
// belongs to deviceID.
func ensureGroupOwned(ctx context.Context, tx *sql.Tx, groupID, deviceID string) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM location_groups WHERE id = $1 AND device_id = $2)`
	if err := tx.QueryRowContext(ctx, query, groupID, deviceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check group ownership: %w", err)
	}
	if !exists {
		return models.ErrGroupNotFound
	}
	return nil
}

// touchGroup refreshes a group's updated_at after its locations changed
func touchGroup(ctx context.Context, tx *sql.Tx, groupID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE location_groups SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), groupID); err != nil {
		return fmt.Errorf("failed to touch group: %w", err)
	}
	return nil
}
