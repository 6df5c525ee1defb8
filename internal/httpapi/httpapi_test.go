package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/codenerd-labs/auditor/internal/config"
	"github.com/codenerd-labs/auditor/internal/orchestrator"
	"github.com/codenerd-labs/auditor/internal/progress"
	"github.com/codenerd-labs/auditor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "auditor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	orch := orchestrator.New(st, progress.New(), 2, nil, config.KafkaConfig{})
	return NewServer(st, orch, progress.New()), st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndGetProject(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/projects/", createProjectRequest{
		Name: "widget", RootPath: "/repo/widget", Scope: "medium",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created projectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "widget", created.Name)
	assert.Equal(t, "open_source", created.ProjectType)

	rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/projects/"+created.ID+"/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProjectRejectsInvalidScope(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/projects/", createProjectRequest{
		Name: "widget", RootPath: "/repo", Scope: "huge",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetProjectNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/projects/does-not-exist/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestStartScanUnknownEngineReturnsBadRequest(t *testing.T) {
	s, st := newTestServer(t)
	root := t.TempDir()
	p, err := st.CreateProject("widget", root, 0, "internal")
	require.NoError(t, err)

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/scans", startScanRequest{ProjectID: p.ID, Engine: "bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code) // rejected by validator's oneof tag first
}

func TestStartScanAccepted(t *testing.T) {
	s, st := newTestServer(t)
	root := t.TempDir()
	p, err := st.CreateProject("widget", root, 0, "internal")
	require.NoError(t, err)

	rec := doJSON(t, s.Router(), http.MethodPost, "/api/v1/scans", startScanRequest{ProjectID: p.ID, Engine: "doc"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var scan scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scan))
	assert.Equal(t, "running", scan.Status)
}

func TestGetReportUnsupportedFormat(t *testing.T) {
	s, st := newTestServer(t)
	root := t.TempDir()
	p, err := st.CreateProject("widget", root, 0, "internal")
	require.NoError(t, err)
	sc, err := st.CreateScan(p.ID, "doc", nil)
	require.NoError(t, err)
	reportJSON := `{"header":{},"results":[],"summary":{},"project_type":"internal","scope":"small"}`
	require.NoError(t, st.FinishScan(sc.ID, store.ScanCompleted, &reportJSON))

	rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/scans/"+sc.ID+"/report?format=markdown", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/scans/"+sc.ID+"/report?format=json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetViolationsJSON(t *testing.T) {
	s, st := newTestServer(t)
	root := t.TempDir()
	p, err := st.CreateProject("widget", root, 0, "internal")
	require.NoError(t, err)
	sc, err := st.CreateScan(p.ID, "doc", nil)
	require.NoError(t, err)
	reportJSON := `{"header":{},"results":[{"id":1,"category":"structure","description":"d","result":{"status":"fail","violations":[{"check_id":1,"message":"missing","severity":"error"}]}}],"summary":{"total":1,"failed":1},"project_type":"internal","scope":"small"}`
	require.NoError(t, st.FinishScan(sc.ID, store.ScanCompleted, &reportJSON))

	rec := doJSON(t, s.Router(), http.MethodGet, "/api/v1/scans/"+sc.ID+"/violations?format=json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing")

	rec = doJSON(t, s.Router(), http.MethodGet, "/api/v1/scans/"+sc.ID+"/violations?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
