// Package store implements the SQLite-backed scan store (C8): project
// and scan persistence plus trend aggregation, grounded in the teacher
// repo's internal/store.LocalStore (internal/store/local_core.go) for
// the connection-setup idiom (WAL, busy_timeout, single serialized
// *sql.DB) and internal/store/migrations.go for the migration shape.
package store

import (
	"errors"
	"time"

	"github.com/codenerd-labs/auditor/internal/model"
)

// ErrNotFound is returned when a lookup or mutation targets a row that
// does not exist (or is already soft-deleted).
var ErrNotFound = errors.New("store: not found")

// Project is a persisted audited-project row (spec.md §3).
type Project struct {
	ID         string
	Name       string
	RootPath   string
	Scope      model.ProjectScope
	ProjectType model.ProjectType
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Deleted    bool
	LastScanID *string
}

// ScanStatus is a Scan's lifecycle state.
type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// Scan is a persisted scan row (spec.md §3).
type Scan struct {
	ID         string
	ProjectID  string
	Engine     string
	Status     ScanStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	ReportJSON *string
	ConfigJSON *string
}

// SrsBlob is a project's stored SRS document (spec.md §3).
type SrsBlob struct {
	ProjectID string
	Content   string
	UpdatedAt time.Time
}

// TrendPoint is one point in a project's scan-history trend series.
type TrendPoint struct {
	ScanID    string
	StartedAt time.Time
	Summary   model.Summary
}

// ProjectPatch is a partial update to a Project; nil fields are left
// unchanged.
type ProjectPatch struct {
	Name        *string
	RootPath    *string
	Scope       *model.ProjectScope
	ProjectType *model.ProjectType
}
