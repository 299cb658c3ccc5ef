package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_devices_last_seen_at ON devices(last_seen_at);

	CREATE TABLE IF NOT EXISTS location_groups (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_location_groups_device_id ON location_groups(device_id, created_at);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES location_groups(id) ON DELETE CASCADE,
		latitude DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
		longitude DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
		title VARCHAR(200) NOT NULL,
		color VARCHAR(7) NOT NULL DEFAULT '#4285F4',
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_locations_group_order ON locations(group_id, order_index, created_at);
	`

	_, err := db.Exec(schema)
	return err
}
