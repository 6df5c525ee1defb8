package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectScopeJSONRoundTrip(t *testing.T) {
	for _, scope := range []ProjectScope{ScopeSmall, ScopeMedium, ScopeLarge} {
		data, err := json.Marshal(scope)
		require.NoError(t, err)

		var out ProjectScope
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, scope, out)
	}
}

func TestProjectScopeUnmarshalUnknown(t *testing.T) {
	var s ProjectScope
	err := json.Unmarshal([]byte(`"huge"`), &s)
	assert.Error(t, err)
}

func TestFailRequiresViolation(t *testing.T) {
	assert.Panics(t, func() { Fail() })
}

func TestSkipRequiresReason(t *testing.T) {
	assert.Panics(t, func() { Skip("") })
}

func TestScanReportRoundTrip(t *testing.T) {
	report := &ScanReport{
		ProjectType: TypeOpenSource,
		ProjectKind: KindLibrary,
		Scope:       ScopeMedium,
		Results: []CheckEntry{
			{Id: 1, Category: "docs", Description: "README exists", Result: Pass()},
			{Id: 2, Category: "docs", Description: "has license", Result: Fail(Violation{CheckId: 2, Message: "missing LICENSE", Severity: SeverityError})},
		},
	}
	report.BuildSummary()

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var out ScanReport
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, report.Scope, out.Scope)
	assert.Equal(t, report.Summary, out.Summary)
	assert.Equal(t, len(report.Results), len(out.Results))
}

func TestBuildSummaryCounts(t *testing.T) {
	r := &ScanReport{Results: []CheckEntry{
		{Result: Pass()},
		{Result: Pass()},
		{Result: Fail(Violation{Message: "x"})},
		{Result: Skip("not applicable")},
	}}
	r.BuildSummary()
	assert.Equal(t, Summary{Total: 4, Passed: 2, Failed: 1, Skipped: 1}, r.Summary)
}

func TestSortById(t *testing.T) {
	r := &ScanReport{Results: []CheckEntry{{Id: 5}, {Id: 1}, {Id: 3}}}
	r.SortById()
	require.Len(t, r.Results, 3)
	assert.Equal(t, []CheckId{1, 3, 5}, []CheckId{r.Results[0].Id, r.Results[1].Id, r.Results[2].Id})
}
