package reporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codenerd-labs/auditor/internal/model"
)

// Text renders r grouped by category (alphabetical, per spec.md §9's
// "preserve current behavior" decision), one line per check with a
// [PASS]/[FAIL]/[SKIP] marker, violations indented beneath their check,
// and a trailing summary line.
func Text(r *model.ScanReport) string {
	byCategory := make(map[string][]model.CheckEntry)
	for _, e := range r.Results {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s — %s\n", r.Header.Tool, r.Header.Version, r.Header.Root)
	fmt.Fprintf(&b, "project_type=%s project_kind=%s scope=%s\n\n", r.ProjectType, r.ProjectKind, r.Scope)

	for _, cat := range categories {
		fmt.Fprintf(&b, "%s:\n", cat)
		for _, e := range byCategory[cat] {
			marker := statusMarker(e.Result.Status)
			fmt.Fprintf(&b, "  [%s] #%d %s\n", marker, e.Id, e.Description)
			switch e.Result.Status {
			case model.StatusFail:
				for _, v := range e.Result.Violations {
					if v.Path != "" {
						fmt.Fprintf(&b, "        %s: %s\n", v.Path, v.Message)
					} else {
						fmt.Fprintf(&b, "        %s\n", v.Message)
					}
				}
			case model.StatusSkip:
				fmt.Fprintf(&b, "        %s\n", e.Result.Reason)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d/%d passed, %d failed, %d skipped\n",
		r.Summary.Passed, r.Summary.Total, r.Summary.Failed, r.Summary.Skipped)
	return b.String()
}

func statusMarker(s model.ResultStatus) string {
	switch s {
	case model.StatusPass:
		return "PASS"
	case model.StatusFail:
		return "FAIL"
	case model.StatusSkip:
		return "SKIP"
	default:
		return "????"
	}
}
