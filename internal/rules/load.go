package rules

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/codenerd-labs/auditor/internal/model"
	"gopkg.in/yaml.v3"
)

// ConfigError wraps any failure to load or validate a catalog. The
// engine driver maps this straight to spec.md §7's ScanError::Config.
type ConfigError struct {
	Rule string // rule id or "<catalog>" for document-level errors
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("rule catalog: %v", e.Err)
	}
	return fmt.Sprintf("rule catalog: rule %s: %v", e.Rule, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// rawRule is the strict on-wire shape of one catalog record (spec.md
// §6). Every field the catalog format allows must be named here;
// yaml.v3's KnownFields(true) rejects anything else.
type rawRule struct {
	Id          int      `yaml:"id"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Severity    string   `yaml:"severity"`
	Type        string   `yaml:"type"`

	Path           string   `yaml:"path,omitempty"`
	Pattern        string   `yaml:"pattern,omitempty"`
	Glob           string   `yaml:"glob,omitempty"`
	Handler        string   `yaml:"handler,omitempty"`
	ExcludePaths   []string `yaml:"exclude_paths,omitempty"`
	ExcludePattern string   `yaml:"exclude_pattern,omitempty"`
	Message        string   `yaml:"message,omitempty"`
	Key            string   `yaml:"key,omitempty"`

	ProjectType  string `yaml:"project_type,omitempty"`
	ProjectKind  string `yaml:"project_kind,omitempty"`
	Scope        string `yaml:"scope,omitempty"`
	DependsOn    []int  `yaml:"depends_on,omitempty"`
	ModuleFilter string `yaml:"module_filter,omitempty"`
}

type rawCatalog struct {
	Rules []rawRule `yaml:"rules"`
}

// Load parses and validates a catalog document, per the invariants in
// spec.md §3–§4.1. knownBuiltins is the set of handler names the process
// has registered (internal/checks.BuiltinNames()); a Builtin rule naming
// anything else fails to load.
func Load(text []byte, knownBuiltins map[string]struct{}) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(text))
	dec.KnownFields(true)
	var doc rawCatalog
	if err := dec.Decode(&doc); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parse: %w", err)}
	}

	rs := &RuleSet{ById: make(map[model.CheckId]*RuleDef, len(doc.Rules))}
	for _, rr := range doc.Rules {
		def, err := buildRule(rr, knownBuiltins)
		if err != nil {
			return nil, err
		}
		if _, dup := rs.ById[def.Id]; dup {
			return nil, &ConfigError{Rule: fmt.Sprint(def.Id), Err: fmt.Errorf("duplicate id")}
		}
		rs.ById[def.Id] = def
		rs.Rules = append(rs.Rules, def)
	}

	for _, def := range rs.Rules {
		for _, p := range def.DependsOn {
			if _, ok := rs.ById[p]; !ok {
				return nil, &ConfigError{Rule: fmt.Sprint(def.Id), Err: fmt.Errorf("depends_on references unknown id %d", p)}
			}
		}
	}
	if cyc := findCycle(rs); cyc != "" {
		return nil, &ConfigError{Err: fmt.Errorf("depends_on cycle detected: %s", cyc)}
	}

	return rs, nil
}

func buildRule(rr rawRule, knownBuiltins map[string]struct{}) (*RuleDef, error) {
	ref := fmt.Sprint(rr.Id)
	if rr.Id < 1 || rr.Id > 255 {
		return nil, &ConfigError{Rule: ref, Err: fmt.Errorf("id %d out of range [1,255]", rr.Id)}
	}
	sev := model.Severity(rr.Severity)
	if !model.ValidSeverity(sev) {
		return nil, &ConfigError{Rule: ref, Err: fmt.Errorf("unknown severity %q", rr.Severity)}
	}

	body, err := buildBody(rr, knownBuiltins)
	if err != nil {
		return nil, &ConfigError{Rule: ref, Err: err}
	}

	def := &RuleDef{
		Id:          model.CheckId(rr.Id),
		Category:    rr.Category,
		Description: rr.Description,
		Severity:    sev,
		Body:        body,
		ModuleFilter: rr.ModuleFilter,
	}

	if rr.ProjectType != "" {
		pt := model.ProjectType(rr.ProjectType)
		if !model.ValidProjectType(pt) {
			return nil, &ConfigError{Rule: ref, Err: fmt.Errorf("unknown project_type %q", rr.ProjectType)}
		}
		def.ProjectType, def.HasTypeGate = pt, true
	}
	if rr.ProjectKind != "" {
		pk := model.ProjectKind(rr.ProjectKind)
		if !model.ValidProjectKind(pk) {
			return nil, &ConfigError{Rule: ref, Err: fmt.Errorf("unknown project_kind %q", rr.ProjectKind)}
		}
		def.ProjectKind, def.HasKindGate = pk, true
	}
	if rr.Scope != "" {
		sc, ok := model.ParseScope(rr.Scope)
		if !ok {
			return nil, &ConfigError{Rule: ref, Err: fmt.Errorf("unknown scope %q", rr.Scope)}
		}
		def.Scope, def.HasScopeGate = sc, true
	}
	for _, d := range rr.DependsOn {
		def.DependsOn = append(def.DependsOn, model.CheckId(d))
	}

	return def, nil
}

func buildBody(rr rawRule, knownBuiltins map[string]struct{}) (Body, error) {
	kind := BodyKind(rr.Type)
	b := Body{Kind: kind, Path: rr.Path, Glob: rr.Glob, Pattern: rr.Pattern,
		Key: rr.Key, Handler: rr.Handler, Message: rr.Message,
		ExcludeGlob: rr.ExcludePattern, ExcludePaths: rr.ExcludePaths}

	need := func(cond bool, field string) error {
		if !cond {
			return fmt.Errorf("missing required field %q for type %q", field, rr.Type)
		}
		return nil
	}
	compileRe := func(pattern string) error {
		_, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		return nil
	}
	compileGlob := func(g string) error {
		_, err := CompileGlob(g)
		if err != nil {
			return fmt.Errorf("invalid glob %q: %w", g, err)
		}
		return nil
	}

	switch kind {
	case KindFileExists, KindDirExists:
		if err := need(rr.Path != "", "path"); err != nil {
			return b, err
		}
	case KindDirNotExists:
		if err := need(rr.Path != "", "path"); err != nil {
			return b, err
		}
		if err := need(rr.Message != "", "message"); err != nil {
			return b, err
		}
	case KindFileContentMatches, KindFileContentNotMatches:
		if err := need(rr.Path != "", "path"); err != nil {
			return b, err
		}
		if err := need(rr.Pattern != "", "pattern"); err != nil {
			return b, err
		}
		if err := compileRe(rr.Pattern); err != nil {
			return b, err
		}
	case KindGlobContentMatches:
		if err := need(rr.Glob != "", "glob"); err != nil {
			return b, err
		}
		if err := need(rr.Pattern != "", "pattern"); err != nil {
			return b, err
		}
		if err := compileGlob(rr.Glob); err != nil {
			return b, err
		}
		if err := compileRe(rr.Pattern); err != nil {
			return b, err
		}
	case KindGlobContentNotMatches:
		if err := need(rr.Glob != "", "glob"); err != nil {
			return b, err
		}
		if err := need(rr.Pattern != "", "pattern"); err != nil {
			return b, err
		}
		if err := compileGlob(rr.Glob); err != nil {
			return b, err
		}
		if err := compileRe(rr.Pattern); err != nil {
			return b, err
		}
		if rr.ExcludePattern != "" {
			if err := compileRe(rr.ExcludePattern); err != nil {
				return b, err
			}
		}
	case KindGlobNamingMatches:
		if err := need(rr.Glob != "", "glob"); err != nil {
			return b, err
		}
		if err := need(rr.Pattern != "", "pattern"); err != nil {
			return b, err
		}
		if err := compileGlob(rr.Glob); err != nil {
			return b, err
		}
		if err := compileRe(rr.Pattern); err != nil {
			return b, err
		}
	case KindGlobNamingNotMatches:
		if err := need(rr.Glob != "", "glob"); err != nil {
			return b, err
		}
		if err := need(rr.Pattern != "", "pattern"); err != nil {
			return b, err
		}
		if err := compileGlob(rr.Glob); err != nil {
			return b, err
		}
		if err := compileRe(rr.Pattern); err != nil {
			return b, err
		}
	case KindManifestKeyExists:
		if err := need(rr.Key != "", "key"); err != nil {
			return b, err
		}
	case KindManifestKeyMatches:
		if err := need(rr.Key != "", "key"); err != nil {
			return b, err
		}
		if err := need(rr.Pattern != "", "pattern"); err != nil {
			return b, err
		}
		if err := compileRe(rr.Pattern); err != nil {
			return b, err
		}
	case KindBuiltin:
		if err := need(rr.Handler != "", "handler"); err != nil {
			return b, err
		}
		if _, ok := knownBuiltins[rr.Handler]; !ok {
			return b, fmt.Errorf("unregistered builtin handler %q", rr.Handler)
		}
	default:
		return b, fmt.Errorf("unknown predicate kind %q", rr.Type)
	}

	return b, nil
}

// findCycle runs a DFS over the depends_on graph and returns a
// human-readable description of the first cycle found, or "" if the
// graph is acyclic.
func findCycle(rs *RuleSet) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[model.CheckId]int, len(rs.Rules))
	var path []model.CheckId

	var visit func(id model.CheckId) string
	visit = func(id model.CheckId) string {
		color[id] = gray
		path = append(path, id)
		def := rs.ById[id]
		for _, p := range def.DependsOn {
			switch color[p] {
			case white:
				if c := visit(p); c != "" {
					return c
				}
			case gray:
				return cyclePath(path, p)
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return ""
	}

	for _, def := range rs.Rules {
		if color[def.Id] == white {
			if c := visit(def.Id); c != "" {
				return c
			}
		}
	}
	return ""
}

func cyclePath(path []model.CheckId, back model.CheckId) string {
	start := 0
	for i, id := range path {
		if id == back {
			start = i
			break
		}
	}
	s := ""
	for _, id := range path[start:] {
		s += fmt.Sprintf("%d -> ", id)
	}
	return s + fmt.Sprint(back)
}
