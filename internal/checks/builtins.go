package checks

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/codenerd-labs/auditor/internal/model"
)

// Handler is a registered builtin check function: full ScanContext in,
// CheckResult out. Handlers are pure — no I/O beyond reading files
// already listed in ctx.Files, per spec.md §4.5.
type Handler func(ctx *model.ScanContext, id model.CheckId, sev model.Severity) model.CheckResult

var builtins = map[string]Handler{
	"no_hardcoded_paths":        noHardcodedPaths,
	"readme_has_sections":       readmeHasSections,
	"changelog_has_unreleased":  changelogHasUnreleased,
	"source_files_have_license": sourceFilesHaveLicense,
	"no_todo_markers":           noTodoMarkers,
}

// BuiltinNames returns the set of registered builtin handler names, fed
// to rules.Load so Builtin rules can be validated at catalog load time.
func BuiltinNames() map[string]struct{} {
	out := make(map[string]struct{}, len(builtins))
	for name := range builtins {
		out[name] = struct{}{}
	}
	return out
}

// executeBuiltin looks up and runs a registered builtin handler. Called
// from Execute for rules.KindBuiltin bodies.
func executeBuiltin(ctx *model.ScanContext, id model.CheckId, sev model.Severity, name string) model.CheckResult {
	h, ok := builtins[name]
	if !ok {
		return model.Fail(model.Violation{CheckId: id, Message: fmt.Sprintf("unregistered builtin handler %q", name), Severity: model.SeverityError})
	}
	return h(ctx, id, sev)
}

// sourceExtensions is the tiny utility vocabulary's set of recognized
// source-file extensions, shared by several builtins.
var sourceExtensions = map[string]bool{
	".rs": true, ".go": true, ".py": true, ".js": true, ".ts": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".rb": true,
}

func isSourceFile(path string) bool {
	for ext := range sourceExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// hardcodedPathPattern flags absolute filesystem paths that look local
// to a developer machine rather than a URL or a project-relative path.
var hardcodedPathPattern = regexp.MustCompile(`(?:["'])(/(?:home|Users|root)/[^"']+|[A-Za-z]:\\[^"']+)(?:["'])`)

func noHardcodedPaths(ctx *model.ScanContext, id model.CheckId, sev model.Severity) model.CheckResult {
	var violations []model.Violation
	for _, f := range ctx.Files {
		if !isSourceFile(f) {
			continue
		}
		content, err := ctx.ReadFile(f)
		if err != nil {
			continue
		}
		for _, m := range hardcodedPathPattern.FindAllString(string(content), -1) {
			if looksLikeURL(m) {
				continue
			}
			violations = append(violations, model.Violation{CheckId: id, Path: f, Message: fmt.Sprintf("hardcoded local path %s", m), Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

func looksLikeURL(s string) bool {
	trimmed := strings.Trim(s, `"'`)
	u, err := url.Parse(trimmed)
	return err == nil && u.Scheme != ""
}

var readmeSectionHeadings = []string{"installation", "usage", "license"}

func readmeHasSections(ctx *model.ScanContext, id model.CheckId, sev model.Severity) model.CheckResult {
	content, err := ctx.ReadFile("README.md")
	if err != nil {
		return model.Skipf("README.md missing or unreadable: %v", err)
	}
	lower := strings.ToLower(string(content))
	var violations []model.Violation
	for _, heading := range readmeSectionHeadings {
		if !strings.Contains(lower, "# "+heading) && !strings.Contains(lower, "## "+heading) {
			violations = append(violations, model.Violation{CheckId: id, Path: "README.md", Message: fmt.Sprintf("missing %q section", heading), Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

func changelogHasUnreleased(ctx *model.ScanContext, id model.CheckId, sev model.Severity) model.CheckResult {
	for _, name := range []string{"CHANGELOG.md", "CHANGELOG.rst", "CHANGELOG"} {
		content, err := ctx.ReadFile(name)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(content)), "unreleased") {
			return model.Pass()
		}
		return model.Fail(model.Violation{CheckId: id, Path: name, Message: "changelog has no Unreleased section", Severity: sev})
	}
	return model.Skip("no changelog file present")
}

// licenseHeaderPattern is deliberately permissive: any of a handful of
// common SPDX/"Copyright" openers within the first few lines.
var licenseHeaderPattern = regexp.MustCompile(`(?im)^\s*(?://|#|/\*)\s*(SPDX-License-Identifier|Copyright)`)

func sourceFilesHaveLicense(ctx *model.ScanContext, id model.CheckId, sev model.Severity) model.CheckResult {
	var violations []model.Violation
	for _, f := range ctx.Files {
		if !isSourceFile(f) {
			continue
		}
		content, err := ctx.ReadFile(f)
		if err != nil {
			continue
		}
		lines := strings.SplitN(string(content), "\n", 5)
		if len(lines) > 4 {
			lines = lines[:4]
		}
		header := strings.Join(lines, "\n")
		if !licenseHeaderPattern.MatchString(header) {
			violations = append(violations, model.Violation{CheckId: id, Path: f, Message: "missing license header", Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

var todoPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|XXX)\b`)

func noTodoMarkers(ctx *model.ScanContext, id model.CheckId, sev model.Severity) model.CheckResult {
	var violations []model.Violation
	for _, f := range ctx.Files {
		if !isSourceFile(f) {
			continue
		}
		content, err := ctx.ReadFile(f)
		if err != nil {
			continue
		}
		if todoPattern.Match(content) {
			violations = append(violations, model.Violation{CheckId: id, Path: f, Message: "contains TODO/FIXME marker", Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}
