package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is a process-wide durable store over a single SQLite file. All
// methods serialize through mu, mirroring the teacher's LocalStore,
// which keeps exactly one *sql.DB connection behind a mutex rather than
// a pool (spec.md §4.8: "a serialized connection behind a mutex is
// sufficient").
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (if needed) and opens the SQLite database at path in WAL
// mode with foreign keys enforced, then applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	logging.Store().Infow("store opened", "path", path)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// CreateProject inserts a new, non-deleted project row.
func (s *Store) CreateProject(name, rootPath string, scope model.ProjectScope, ptype model.ProjectType) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Project{
		ID: uuid.NewString(), Name: name, RootPath: rootPath,
		Scope: scope, ProjectType: ptype,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (id, name, root_path, scope, project_type, created_at, updated_at, deleted) VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		p.ID, p.Name, p.RootPath, p.Scope.String(), string(p.ProjectType), now(), now(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: create project: %w", err)
	}
	logging.Store().Infow("project created", "project_id", p.ID, "name", name)
	return p, nil
}

// ListProjects returns all non-deleted projects.
func (s *Store) ListProjects() ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, name, root_path, scope, project_type, created_at, updated_at, last_scan_id FROM projects WHERE deleted = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProject returns a single non-deleted project, or ErrNotFound.
func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProjectLocked(id)
}

func (s *Store) getProjectLocked(id string) (*Project, error) {
	row := s.db.QueryRow(`SELECT id, name, root_path, scope, project_type, created_at, updated_at, last_scan_id FROM projects WHERE id = ? AND deleted = 0`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(r rowScanner) (*Project, error) {
	var p Project
	var scopeStr, typeStr, createdAt, updatedAt string
	var lastScanID sql.NullString
	if err := r.Scan(&p.ID, &p.Name, &p.RootPath, &scopeStr, &typeStr, &createdAt, &updatedAt, &lastScanID); err != nil {
		return nil, err
	}
	scope, _ := model.ParseScope(scopeStr)
	p.Scope = scope
	p.ProjectType = model.ProjectType(typeStr)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	if lastScanID.Valid {
		v := lastScanID.String
		p.LastScanID = &v
	}
	return &p, nil
}

// UpdateProject applies a partial update and returns the updated row, or
// ErrNotFound if id is missing or deleted.
func (s *Store) UpdateProject(id string, patch ProjectPatch) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getProjectLocked(id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		existing.Name = *patch.Name
	}
	if patch.RootPath != nil {
		existing.RootPath = *patch.RootPath
	}
	if patch.Scope != nil {
		existing.Scope = *patch.Scope
	}
	if patch.ProjectType != nil {
		existing.ProjectType = *patch.ProjectType
	}

	_, err = s.db.Exec(
		`UPDATE projects SET name = ?, root_path = ?, scope = ?, project_type = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		existing.Name, existing.RootPath, existing.Scope.String(), string(existing.ProjectType), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("store: update project: %w", err)
	}
	return s.getProjectLocked(id)
}

// DeleteProject soft-deletes a project. Idempotent on an already-deleted
// id: the first call returns nil and every later call returns
// ErrNotFound, matching spec.md §8's round-trip property.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE projects SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`, now(), id)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	logging.Store().Infow("project deleted", "project_id", id)
	return nil
}

// CreateScan inserts a new scan row in the running state.
func (s *Store) CreateScan(projectID, engine string, configJSON *string) (*Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := &Scan{
		ID: uuid.NewString(), ProjectID: projectID, Engine: engine,
		Status: ScanRunning, StartedAt: time.Now().UTC(), ConfigJSON: configJSON,
	}
	_, err := s.db.Exec(
		`INSERT INTO scans (id, project_id, engine, status, started_at, config_json) VALUES (?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.ProjectID, sc.Engine, string(sc.Status), now(), configJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("store: create scan: %w", err)
	}
	logging.Store().Infow("scan row created", "scan_id", sc.ID, "project_id", projectID, "engine", engine)
	return sc, nil
}

// FinishScan transitions a scan to a terminal status. It is idempotent:
// calling it again with the same terminal status is a no-op that
// returns nil, matching spec.md §8's idempotence property. The owning
// project's last_scan_id is only updated when status is "completed".
func (s *Store) FinishScan(id string, status ScanStatus, reportJSON *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var projectID, currentStatus string
	err := s.db.QueryRow(`SELECT project_id, status FROM scans WHERE id = ?`, id).Scan(&projectID, &currentStatus)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: finish scan: %w", err)
	}
	if currentStatus != string(ScanRunning) {
		return nil // already terminal; idempotent no-op
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: finish scan: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE scans SET status = ?, finished_at = ?, report_json = ? WHERE id = ?`,
		string(status), now(), reportJSON, id,
	); err != nil {
		return fmt.Errorf("store: finish scan: %w", err)
	}
	if status == ScanCompleted {
		if _, err := tx.Exec(`UPDATE projects SET last_scan_id = ?, updated_at = ? WHERE id = ?`, id, now(), projectID); err != nil {
			return fmt.Errorf("store: finish scan: update project: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: finish scan: commit: %w", err)
	}
	logging.Store().Infow("scan finished", "scan_id", id, "status", status)
	return nil
}

// GetScan returns a single scan row, or ErrNotFound.
func (s *Store) GetScan(id string) (*Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, project_id, engine, status, started_at, finished_at, report_json, config_json FROM scans WHERE id = ?`, id)
	sc, err := scanScan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get scan: %w", err)
	}
	return sc, nil
}

func scanScan(r rowScanner) (*Scan, error) {
	var sc Scan
	var status, startedAt string
	var finishedAt, reportJSON, configJSON sql.NullString
	if err := r.Scan(&sc.ID, &sc.ProjectID, &sc.Engine, &status, &startedAt, &finishedAt, &reportJSON, &configJSON); err != nil {
		return nil, err
	}
	sc.Status = ScanStatus(status)
	sc.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		sc.FinishedAt = &t
	}
	if reportJSON.Valid {
		v := reportJSON.String
		sc.ReportJSON = &v
	}
	if configJSON.Valid {
		v := configJSON.String
		sc.ConfigJSON = &v
	}
	return &sc, nil
}

// ListScansForProject returns a project's scans ordered started_at DESC.
func (s *Store) ListScansForProject(projectID string) ([]*Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, project_id, engine, status, started_at, finished_at, report_json, config_json FROM scans WHERE project_id = ? ORDER BY started_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list scans: %w", err)
	}
	defer rows.Close()

	var out []*Scan
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetSRS returns a project's stored SRS content, if any.
func (s *Store) GetSRS(projectID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content string
	err := s.db.QueryRow(`SELECT content FROM srs_content WHERE project_id = ?`, projectID).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get srs: %w", err)
	}
	return content, true, nil
}

// SaveSRS upserts a project's SRS content.
func (s *Store) SaveSRS(projectID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO srs_content (project_id, content, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		projectID, content, now(),
	)
	if err != nil {
		return fmt.Errorf("store: save srs: %w", err)
	}
	return nil
}
