package httpapi

import (
	"time"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/store"
)

// createProjectRequest is the body of POST /api/v1/projects, validated with
// go-playground/validator per SPEC_FULL.md's DOMAIN STACK wiring.
type createProjectRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	RootPath    string `json:"root_path" validate:"required"`
	Scope       string `json:"scope" validate:"required,oneof=small medium large"`
	ProjectType string `json:"project_type" validate:"omitempty,oneof=open_source internal"`
}

type updateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	RootPath    *string `json:"root_path" validate:"omitempty"`
	Scope       *string `json:"scope" validate:"omitempty,oneof=small medium large"`
	ProjectType *string `json:"project_type" validate:"omitempty,oneof=open_source internal"`
}

type startScanRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	Engine    string `json:"engine" validate:"required,oneof=doc struct"`
}

type putSRSRequest struct {
	Content string `json:"content" validate:"required"`
}

type projectResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	RootPath    string     `json:"root_path"`
	Scope       string     `json:"scope"`
	ProjectType string     `json:"project_type"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastScanID  *string    `json:"last_scan_id,omitempty"`
}

func toProjectResponse(p *store.Project) projectResponse {
	return projectResponse{
		ID: p.ID, Name: p.Name, RootPath: p.RootPath,
		Scope: p.Scope.String(), ProjectType: string(p.ProjectType),
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt, LastScanID: p.LastScanID,
	}
}

type scanResponse struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"project_id"`
	Engine     string     `json:"engine"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Report     *model.ScanReport `json:"report,omitempty"`
}

type trendPointResponse struct {
	ScanID    string        `json:"scan_id"`
	StartedAt time.Time     `json:"started_at"`
	Summary   model.Summary `json:"summary"`
}
