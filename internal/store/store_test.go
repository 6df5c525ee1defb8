package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auditor.db")
	st, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndGetProject(t *testing.T) {
	st := openTestStore(t)
	p, err := st.CreateProject("widget", "/repo/widget", model.ScopeMedium, model.TypeOpenSource)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	got, err := st.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, model.ScopeMedium, got.Scope)
}

func TestGetProjectNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetProject("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProjectIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	p, err := st.CreateProject("widget", "/repo/widget", model.ScopeSmall, model.TypeInternal)
	require.NoError(t, err)

	require.NoError(t, st.DeleteProject(p.ID))
	assert.ErrorIs(t, st.DeleteProject(p.ID), ErrNotFound)

	_, err = st.GetProject(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProjectAppliesPartialPatch(t *testing.T) {
	st := openTestStore(t)
	p, err := st.CreateProject("widget", "/repo/widget", model.ScopeSmall, model.TypeInternal)
	require.NoError(t, err)

	newName := "widget-renamed"
	updated, err := st.UpdateProject(p.ID, ProjectPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "widget-renamed", updated.Name)
	assert.Equal(t, p.RootPath, updated.RootPath)
}

func TestCreateScanAndFinishScanIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	p, err := st.CreateProject("widget", "/repo/widget", model.ScopeSmall, model.TypeInternal)
	require.NoError(t, err)

	scan, err := st.CreateScan(p.ID, "doc", nil)
	require.NoError(t, err)
	assert.Equal(t, ScanRunning, scan.Status)

	report := `{"summary":{"total":1,"passed":1}}`
	require.NoError(t, st.FinishScan(scan.ID, ScanCompleted, &report))

	got, err := st.GetScan(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, ScanCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)

	// Idempotent: finishing an already-terminal scan again is a no-op,
	// not an error, even with a different status.
	require.NoError(t, st.FinishScan(scan.ID, ScanFailed, nil))
	got2, err := st.GetScan(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, ScanCompleted, got2.Status)

	project, err := st.GetProject(p.ID)
	require.NoError(t, err)
	require.NotNil(t, project.LastScanID)
	assert.Equal(t, scan.ID, *project.LastScanID)
}

func TestFinishScanUnknownIdReturnsNotFound(t *testing.T) {
	st := openTestStore(t)
	assert.ErrorIs(t, st.FinishScan("missing", ScanCompleted, nil), ErrNotFound)
}

func TestSaveAndGetSRS(t *testing.T) {
	st := openTestStore(t)
	p, err := st.CreateProject("widget", "/repo/widget", model.ScopeSmall, model.TypeInternal)
	require.NoError(t, err)

	_, ok, err := st.GetSRS(p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SaveSRS(p.ID, "## Requirements\n..."))
	content, ok, err := st.GetSRS(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "## Requirements\n...", content)

	require.NoError(t, st.SaveSRS(p.ID, "## Requirements v2"))
	content, _, err = st.GetSRS(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "## Requirements v2", content)
}

func TestListScansForProjectOrdersMostRecentFirst(t *testing.T) {
	st := openTestStore(t)
	p, err := st.CreateProject("widget", "/repo/widget", model.ScopeSmall, model.TypeInternal)
	require.NoError(t, err)

	first, err := st.CreateScan(p.ID, "doc", nil)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // started_at has whole-second resolution
	second, err := st.CreateScan(p.ID, "struct", nil)
	require.NoError(t, err)

	scans, err := st.ListScansForProject(p.ID)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, second.ID, scans[0].ID)
	assert.Equal(t, first.ID, scans[1].ID)
}
