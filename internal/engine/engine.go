// Package engine implements the engine driver (C6): it wires the rule
// catalog (C1), file scanner (C2), manifest reader (C3), and detectors
// (C4) into a single scan, dispatching each rule to the check executors
// (C5) in id order and assembling the resulting ScanReport.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codenerd-labs/auditor/internal/checks"
	"github.com/codenerd-labs/auditor/internal/detect"
	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/codenerd-labs/auditor/internal/manifest"
	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/rules"
	"github.com/codenerd-labs/auditor/internal/scanner"
)

// ToolName/ToolVersion populate ScanReport.Header.
const (
	ToolName    = "auditor"
	ToolVersion = "1.0.0"
	Standard    = "compliance-catalog"
)

// ErrorKind tags which fatal-to-the-scan failure occurred, per spec.md §7.
type ErrorKind string

const (
	ErrPath   ErrorKind = "path"
	ErrConfig ErrorKind = "config"
)

// ScanError is returned for failures that abort the whole scan (as
// opposed to a per-check Skip/Fail).
type ScanError struct {
	Kind ErrorKind
	Err  error
}

func (e *ScanError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *ScanError) Unwrap() error  { return e.Err }

// Config controls a single scan invocation, per spec.md §4.6.
type Config struct {
	ProjectType  *model.ProjectType
	ProjectKind  *model.ProjectKind
	ProjectScope model.ProjectScope
	RulesPath    string            // "" = embedded default catalog
	Checks       map[model.CheckId]bool // nil = all ids allowed
	Phases       map[string]bool   // nil = all categories allowed
	ModuleFilter string
	ExcludedDirs []string
	// Deadline, if set, is checked between checks; a scan that runs past
	// it stops early and returns a ScanError wrapping context.DeadlineExceeded.
	Deadline *time.Time
}

// Scan runs the compliance engine against root and returns the
// completed report, per spec.md §4.6.
func Scan(root string, cfg Config) (*model.ScanReport, error) {
	log := logging.Engine()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &ScanError{Kind: ErrPath, Err: fmt.Errorf("root %q does not exist or is not a directory", root)}
	}

	catalogText := rules.DefaultCatalog()
	if cfg.RulesPath != "" {
		data, err := os.ReadFile(cfg.RulesPath)
		if err != nil {
			return nil, &ScanError{Kind: ErrConfig, Err: fmt.Errorf("read rules file %s: %w", cfg.RulesPath, err)}
		}
		catalogText = data
	}
	ruleSet, err := rules.Load(catalogText, checks.BuiltinNames())
	if err != nil {
		return nil, &ScanError{Kind: ErrConfig, Err: err}
	}

	manifestView, err := manifest.Read(root)
	if err != nil {
		log.Warnw("failed to parse manifest, proceeding without it", "error", err)
		manifestView = &model.ManifestView{Present: false}
	}

	resolvedType := detect.ProjectType(root)
	if cfg.ProjectType != nil {
		resolvedType = *cfg.ProjectType
	}
	resolvedKind := detect.ProjectKind(root, manifestView)
	if cfg.ProjectKind != nil {
		resolvedKind = *cfg.ProjectKind
	}

	files, err := scanner.ScanFiles(root, cfg.ExcludedDirs)
	if err != nil {
		return nil, &ScanError{Kind: ErrPath, Err: err}
	}

	scanCtx := &model.ScanContext{
		Root:         root,
		Files:        files,
		ContentCache: make(map[string][]byte),
		ProjectType:  resolvedType,
		ProjectKind:  resolvedKind,
		Scope:        cfg.ProjectScope,
		ModuleFilter: cfg.ModuleFilter,
		Manifest:     manifestView,
	}

	log.Infow("scan starting", "root", root, "project_type", resolvedType, "project_kind", resolvedKind, "files", len(files))

	report := &model.ScanReport{
		Header: model.ReportHeader{
			Tool: ToolName, Version: ToolVersion, Standard: Standard,
			Timestamp: time.Now().UTC(), Root: root,
		},
		ProjectType: resolvedType,
		ProjectKind: resolvedKind,
		Scope:       cfg.ProjectScope,
	}

	resultsById := make(map[model.CheckId]model.CheckResult)
	for _, def := range ruleSet.ExecutionOrder() {
		if cfg.Deadline != nil && time.Now().After(*cfg.Deadline) {
			return nil, &ScanError{Kind: ErrConfig, Err: fmt.Errorf("scan deadline exceeded after %d checks: %w", len(report.Results), context.DeadlineExceeded)}
		}

		if cfg.Checks != nil && !cfg.Checks[def.Id] {
			continue // omitted entirely, not even Skip
		}
		if cfg.Phases != nil && !cfg.Phases[def.Category] {
			continue
		}
		if cfg.ModuleFilter != "" && def.ModuleFilter != "" && def.ModuleFilter != cfg.ModuleFilter {
			continue
		}

		var result model.CheckResult
		switch {
		case def.HasTypeGate && def.ProjectType != resolvedType:
			result = model.Skipf("requires %s project (detected %s)", def.ProjectType, resolvedType)
		case def.HasKindGate && def.ProjectKind != resolvedKind:
			result = model.Skipf("requires %s kind (detected %s)", def.ProjectKind, resolvedKind)
		case def.HasScopeGate && def.Scope > cfg.ProjectScope:
			result = model.Skipf("requires %s scope (configured %s)", def.Scope, cfg.ProjectScope)
		case !dependenciesSatisfied(def, resultsById):
			result = model.Skipf("dependency %d did not pass", firstFailedDependency(def, resultsById))
		default:
			result = runCheck(scanCtx, def)
		}

		resultsById[def.Id] = result
		report.Results = append(report.Results, model.CheckEntry{
			Id: def.Id, Category: def.Category, Description: def.Description, Result: result,
		})
	}

	report.SortById()
	report.BuildSummary()
	log.Infow("scan completed", "root", root, "total", report.Summary.Total,
		"passed", report.Summary.Passed, "failed", report.Summary.Failed, "skipped", report.Summary.Skipped)
	return report, nil
}

func dependenciesSatisfied(def *rules.RuleDef, results map[model.CheckId]model.CheckResult) bool {
	for _, p := range def.DependsOn {
		if r, ok := results[p]; !ok || r.Status != model.StatusPass {
			return false
		}
	}
	return true
}

func firstFailedDependency(def *rules.RuleDef, results map[model.CheckId]model.CheckResult) model.CheckId {
	for _, p := range def.DependsOn {
		if r, ok := results[p]; !ok || r.Status != model.StatusPass {
			return p
		}
	}
	return 0
}

// runCheck dispatches one rule's predicate, converting a handler panic
// into a Fail result so a single buggy builtin never aborts the scan,
// per spec.md §4.6's failure semantics.
func runCheck(ctx *model.ScanContext, def *rules.RuleDef) (result model.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Engine().Errorw("check handler panicked", "check_id", def.Id, "panic", r)
			result = model.Fail(model.Violation{
				CheckId:  def.Id,
				Message:  fmt.Sprintf("handler panicked: %v", r),
				Severity: model.SeverityError,
			})
		}
	}()
	return checks.Execute(ctx, def.Id, def.Severity, def.Body)
}
