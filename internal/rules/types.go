// Package rules implements the declarative rule catalog (C1): parsing
// the catalog document, validating it, and exposing an immutable,
// id-ordered RuleSet to the engine driver.
package rules

import (
	"github.com/codenerd-labs/auditor/internal/model"
)

// BodyKind tags which predicate a RuleDef.Body carries.
type BodyKind string

const (
	KindFileExists             BodyKind = "file_exists"
	KindDirExists              BodyKind = "dir_exists"
	KindDirNotExists           BodyKind = "dir_not_exists"
	KindFileContentMatches     BodyKind = "file_content_matches"
	KindFileContentNotMatches  BodyKind = "file_content_not_matches"
	KindGlobContentMatches     BodyKind = "glob_content_matches"
	KindGlobContentNotMatches  BodyKind = "glob_content_not_matches"
	KindGlobNamingMatches      BodyKind = "glob_naming_matches"
	KindGlobNamingNotMatches   BodyKind = "glob_naming_not_matches"
	KindManifestKeyExists      BodyKind = "manifest_key_exists"
	KindManifestKeyMatches     BodyKind = "manifest_key_matches"
	KindBuiltin                BodyKind = "builtin"
)

// Body is the tagged-variant predicate a rule evaluates. Only the fields
// relevant to Kind are populated; Load validates that the required
// fields for each kind are present and that regex/glob strings compile.
type Body struct {
	Kind BodyKind

	Path    string // file_exists, dir_exists, dir_not_exists, file_content_*
	Glob    string // glob_* kinds
	Pattern string // the regex/naming pattern, pre-compiled and cached
	Key     string // manifest_key_*
	Handler string // builtin

	Message       string   // dir_not_exists
	ExcludeGlob   string   // glob_content_not_matches: exclude pattern
	ExcludePaths  []string // glob_naming_not_matches: path prefixes to skip
}

// RuleDef is one immutable rule, as described in spec.md §3.
type RuleDef struct {
	Id          model.CheckId
	Category    string
	Description string
	Severity    model.Severity
	Body        Body

	ProjectKind  model.ProjectKind // zero value means "no gate"
	HasKindGate  bool
	ProjectType  model.ProjectType
	HasTypeGate  bool
	Scope        model.ProjectScope
	HasScopeGate bool
	ModuleFilter string

	DependsOn []model.CheckId
}

// RuleSet is the ordered, validated catalog produced by Load. Rules is
// in catalog declaration order; ById indexes the same rules by id for
// O(1) dependency lookups.
type RuleSet struct {
	Rules []*RuleDef
	ById  map[model.CheckId]*RuleDef
}

// ExecutionOrder returns rules sorted by ascending id, the order the
// engine driver dispatches checks in (spec.md §4.1).
func (rs *RuleSet) ExecutionOrder() []*RuleDef {
	out := make([]*RuleDef, len(rs.Rules))
	copy(out, rs.Rules)
	// Simple insertion sort is fine: catalogs are at most 255 rules.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Id > out[j].Id; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
