package httpapi

import (
	"net/http"
	"time"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/reporter"
	"github.com/codenerd-labs/auditor/internal/store"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "BAD_REQUEST", err.Error())
		return
	}
	scope, _ := model.ParseScope(req.Scope)
	ptype := model.ProjectType(req.ProjectType)
	if req.ProjectType == "" {
		ptype = model.TypeOpenSource
	}

	p, err := s.store.CreateProject(req.Name, req.RootPath, scope, ptype)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(p))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	p, err := s.store.GetProject(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "BAD_REQUEST", err.Error())
		return
	}

	patch := store.ProjectPatch{Name: req.Name, RootPath: req.RootPath}
	if req.Scope != nil {
		scope, ok := model.ParseScope(*req.Scope)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "BAD_REQUEST", "unknown scope")
			return
		}
		patch.Scope = &scope
	}
	if req.ProjectType != nil {
		pt := model.ProjectType(*req.ProjectType)
		patch.ProjectType = &pt
	}

	p, err := s.store.UpdateProject(id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	if err := s.store.DeleteProject(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTrends(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "since must be RFC3339")
			return
		}
		since = &t
	}
	points, err := s.store.GetTrends(id, since)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]trendPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, trendPointResponse{ScanID: p.ScanID, StartedAt: p.StartedAt, Summary: p.Summary})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSRS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	content, ok, err := s.store.GetSRS(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no SRS stored for project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handlePutSRS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	var req putSRSRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "BAD_REQUEST", err.Error())
		return
	}
	if err := s.store.SaveSRS(id, req.Content); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "BAD_REQUEST", err.Error())
		return
	}

	project, err := s.store.GetProject(req.ProjectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	scan, err := s.orchestrator.StartScan(r.Context(), req.ProjectID, req.Engine, project.Scope)
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toScanResponse(scan))
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	scans, err := s.store.ListScansForProject(projectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]scanResponse, 0, len(scans))
	for _, sc := range scans {
		out = append(out, toScanResponse(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	sc, err := s.store.GetScan(scanID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScanResponse(sc))
}

// handleGetReport serves a completed scan's report in the requested
// format. Only "json" is rendered in-process; "markdown" is delegated
// to the Markdown report converter, an external collaborator out of
// this engine's scope (spec.md §1), so it 400s here rather than
// reimplementing that renderer.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	sc, err := s.store.GetScan(scanID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sc.Status != store.ScanCompleted || sc.ReportJSON == nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "scan has no completed report")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(*sc.ReportJSON))
	case "markdown":
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "markdown rendering is handled by the report-converter service, not this engine")
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported format: "+format)
	}
}

// handleGetViolations flattens every Fail result's violations into a
// single table, keyed by format. CSV rendering is likewise delegated
// to the out-of-scope report-converter collaborator.
func (s *Server) handleGetViolations(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	sc, err := s.store.GetScan(scanID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sc.Status != store.ScanCompleted || sc.ReportJSON == nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "scan has no completed report")
		return
	}
	report, err := reporter.ParseJSON([]byte(*sc.ReportJSON))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var rows []model.Violation
	for _, entry := range report.Results {
		if entry.Result.Status == model.StatusFail {
			rows = append(rows, entry.Result.Violations...)
		}
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		writeJSON(w, http.StatusOK, rows)
	case "csv":
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "csv rendering is handled by the report-converter service, not this engine")
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported format: "+format)
	}
}

func toScanResponse(sc *store.Scan) scanResponse {
	resp := scanResponse{
		ID: sc.ID, ProjectID: sc.ProjectID, Engine: sc.Engine,
		Status: string(sc.Status), StartedAt: sc.StartedAt, FinishedAt: sc.FinishedAt,
	}
	if sc.Status == store.ScanCompleted && sc.ReportJSON != nil {
		if report, err := reporter.ParseJSON([]byte(*sc.ReportJSON)); err == nil {
			resp.Report = report
		}
	}
	return resp
}
