package datasource

import (
	"database/sql"
	"fmt"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		x          REAL NOT NULL DEFAULT 0,
		y          REAL NOT NULL DEFAULT 0,
		width      REAL NOT NULL,
		height     REAL NOT NULL,
		z_index    INTEGER NOT NULL DEFAULT 0,
		is_locked  INTEGER NOT NULL DEFAULT 0,
		file_name  TEXT NOT NULL,
		file_url   TEXT NOT NULL,
		file_size  INTEGER NOT NULL DEFAULT 0,
		mime_type  TEXT,
		checksum   TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_session ON nodes(session_id, z_index)`,
}

func createSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return nil
}
