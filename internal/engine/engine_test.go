package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func minimalProject(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# widget\n\nInstallation\nUsage\nLicense\n")
	writeFile(t, root, "LICENSE", "MIT License")
	writeFile(t, root, "Cargo.toml", "[package]\nname = \"widget\"\nedition = \"2021\"\n")
	return root
}

func TestScanMinimalProjectCompletes(t *testing.T) {
	root := minimalProject(t)
	report, err := Scan(root, Config{ProjectScope: model.ScopeSmall})
	require.NoError(t, err)
	assert.Equal(t, model.TypeOpenSource, report.ProjectType)
	assert.Greater(t, report.Summary.Total, 0)
}

func TestScanRejectsMissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), Config{ProjectScope: model.ScopeSmall})
	require.Error(t, err)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, ErrPath, scanErr.Kind)
}

func TestScanGatesOnScope(t *testing.T) {
	root := minimalProject(t)
	report, err := Scan(root, Config{ProjectScope: model.ScopeSmall})
	require.NoError(t, err)

	var changelogResult *model.CheckResult
	for _, e := range report.Results {
		if e.Id == 4 {
			changelogResult = &e.Result
		}
	}
	require.NotNil(t, changelogResult)
	assert.Equal(t, model.StatusSkip, changelogResult.Status)
}

func TestScanPropagatesFailedDependencyAsSkip(t *testing.T) {
	root := minimalProject(t)
	// No CHANGELOG.md written: id 4 fails, so its dependent id 5 must Skip.
	report, err := Scan(root, Config{ProjectScope: model.ScopeMedium})
	require.NoError(t, err)

	results := map[model.CheckId]model.CheckResult{}
	for _, e := range report.Results {
		results[e.Id] = e.Result
	}
	require.Equal(t, model.StatusFail, results[4].Status)
	require.Equal(t, model.StatusSkip, results[5].Status)
}

func TestScanAppliesCheckFilter(t *testing.T) {
	root := minimalProject(t)
	report, err := Scan(root, Config{
		ProjectScope: model.ScopeSmall,
		Checks:       map[model.CheckId]bool{1: true},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, model.CheckId(1), report.Results[0].Id)
}

func TestScanReportRoundTripsThroughJSON(t *testing.T) {
	root := minimalProject(t)
	report, err := Scan(root, Config{ProjectScope: model.ScopeLarge})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var out model.ScanReport
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, report.Scope, out.Scope)
	assert.Equal(t, report.Summary, out.Summary)
}
