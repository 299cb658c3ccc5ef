package repository

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database.
// Use ":memory:" for a private in-memory database.
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func sqliteDSN(dbPath string) string {
	const params = "_foreign_keys=on&_busy_timeout=5000"
	if dbPath == "" || dbPath == ":memory:" {
		return "file::memory:?" + params
	}
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + params
	}
	return "file:" + dbPath + "?" + params + "&_journal_mode=WAL"
}

func createTables(db *sql.DB) error {
	schema := `
	-- Devices (anonymous browser identities)
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_devices_last_seen_at ON devices(last_seen_at);

	-- Location groups
	CREATE TABLE IF NOT EXISTS location_groups (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_location_groups_device_id ON location_groups(device_id, created_at);

	-- Locations (ordered markers within a group)
	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES location_groups(id) ON DELETE CASCADE,
		latitude REAL NOT NULL CHECK (latitude BETWEEN -90 AND 90),
		longitude REAL NOT NULL CHECK (longitude BETWEEN -180 AND 180),
		title TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '#4285F4',
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_locations_group_order ON locations(group_id, order_index, created_at);
	`

	_, err := db.Exec(schema)
	return err
}
