package reporter

import (
	"testing"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *model.ScanReport {
	r := &model.ScanReport{
		ProjectType: model.TypeOpenSource,
		ProjectKind: model.KindLibrary,
		Scope:       model.ScopeMedium,
		Results: []model.CheckEntry{
			{Id: 2, Category: "structure", Description: "has lib target", Result: model.Pass()},
			{Id: 1, Category: "docs", Description: "README exists", Result: model.Fail(model.Violation{CheckId: 1, Path: "README.md", Message: "missing", Severity: model.SeverityError})},
		},
	}
	r.SortById()
	r.BuildSummary()
	return r
}

func TestJSONRoundTrip(t *testing.T) {
	r := sampleReport()
	data, err := JSON(r)
	require.NoError(t, err)

	out, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, r.Scope, out.Scope)
	assert.Equal(t, r.Summary, out.Summary)
	assert.Equal(t, len(r.Results), len(out.Results))
}

func TestTextGroupsByCategoryAlphabetically(t *testing.T) {
	text := Text(sampleReport())
	assert.Contains(t, text, "docs:")
	assert.Contains(t, text, "structure:")
	assert.Contains(t, text, "[FAIL] #1 README exists")
	assert.Contains(t, text, "1/2 passed, 1 failed, 0 skipped")
}
