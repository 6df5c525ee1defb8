package store

import "database/sql"

// schemaDDL matches the three-table layout in spec.md §3/§6, applied
// idempotently on every open, the same "CREATE TABLE IF NOT EXISTS"
// migration style the teacher's internal/store.initialize uses.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS projects (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	root_path     TEXT NOT NULL,
	scope         TEXT NOT NULL,
	project_type  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	deleted       INTEGER NOT NULL DEFAULT 0,
	last_scan_id  TEXT
);

CREATE TABLE IF NOT EXISTS scans (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL REFERENCES projects(id),
	engine       TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	report_json  TEXT,
	config_json  TEXT
);

CREATE INDEX IF NOT EXISTS idx_scans_project ON scans(project_id, started_at DESC);

CREATE TABLE IF NOT EXISTS srs_content (
	project_id  TEXT PRIMARY KEY REFERENCES projects(id),
	content     TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schemaDDL)
	return err
}
