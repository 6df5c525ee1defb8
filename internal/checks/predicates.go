// Package checks implements the pure predicate executors (C5): one
// function per rules.BodyKind, plus the builtin-handler registry.
package checks

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/codenerd-labs/auditor/internal/manifest"
	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/rules"
)

// regexCache memoizes compiled regexes across checks within a process,
// per spec.md §4.5 ("compile regex (cached)").
var (
	regexCacheMu sync.RWMutex
	regexCache   = map[string]*regexp.Regexp{}

	globCacheMu sync.RWMutex
	globCache   = map[string]*regexp.Regexp{}
)

func compiledRegex(pattern string) *regexp.Regexp {
	regexCacheMu.RLock()
	re, ok := regexCache[pattern]
	regexCacheMu.RUnlock()
	if ok {
		return re
	}
	// Already validated at catalog load time; a compile error here would
	// be a programming error, not a runtime condition.
	re = regexp.MustCompile(pattern)
	regexCacheMu.Lock()
	regexCache[pattern] = re
	regexCacheMu.Unlock()
	return re
}

func compiledGlob(glob string) *regexp.Regexp {
	globCacheMu.RLock()
	re, ok := globCache[glob]
	globCacheMu.RUnlock()
	if ok {
		return re
	}
	re, err := rules.CompileGlob(glob)
	if err != nil {
		panic(fmt.Sprintf("checks: glob %q failed to recompile after catalog validation: %v", glob, err))
	}
	globCacheMu.Lock()
	globCache[glob] = re
	globCacheMu.Unlock()
	return re
}

// Execute dispatches a rule body to the matching predicate function.
// Filesystem read errors never abort the scan; each predicate handles
// them itself. A file_content_matches rule whose file cannot be read
// Skips, and file_content_not_matches Passes. glob_content_matches
// reports an unreadable file as a violation, while
// glob_content_not_matches and the source-scanning builtins pass over
// unreadable files, so the check as a whole is not skipped.
func Execute(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	switch body.Kind {
	case rules.KindFileExists:
		return fileExists(ctx, id, sev, body)
	case rules.KindDirExists:
		return dirExists(ctx, id, sev, body)
	case rules.KindDirNotExists:
		return dirNotExists(ctx, id, sev, body)
	case rules.KindFileContentMatches:
		return fileContentMatches(ctx, id, sev, body)
	case rules.KindFileContentNotMatches:
		return fileContentNotMatches(ctx, id, sev, body)
	case rules.KindGlobContentMatches:
		return globContentMatches(ctx, id, sev, body)
	case rules.KindGlobContentNotMatches:
		return globContentNotMatches(ctx, id, sev, body)
	case rules.KindGlobNamingMatches:
		return globNamingMatches(ctx, id, sev, body)
	case rules.KindGlobNamingNotMatches:
		return globNamingNotMatches(ctx, id, sev, body)
	case rules.KindManifestKeyExists:
		return manifestKeyExists(ctx, id, sev, body)
	case rules.KindManifestKeyMatches:
		return manifestKeyMatches(ctx, id, sev, body)
	case rules.KindBuiltin:
		return executeBuiltin(ctx, id, sev, body.Handler)
	default:
		return model.Fail(model.Violation{CheckId: id, Message: fmt.Sprintf("unknown predicate kind %q", body.Kind), Severity: model.SeverityError})
	}
}

func absPath(ctx *model.ScanContext, rel string) string {
	return filepath.Join(ctx.Root, filepath.FromSlash(rel))
}

func fileExists(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	info, err := os.Stat(absPath(ctx, body.Path))
	if err == nil && !info.IsDir() {
		return model.Pass()
	}
	return model.Fail(model.Violation{CheckId: id, Path: body.Path, Message: fmt.Sprintf("required file %q does not exist", body.Path), Severity: sev})
}

func dirExists(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	info, err := os.Stat(absPath(ctx, body.Path))
	if err == nil && info.IsDir() {
		return model.Pass()
	}
	return model.Fail(model.Violation{CheckId: id, Path: body.Path, Message: fmt.Sprintf("required directory %q does not exist", body.Path), Severity: sev})
}

func dirNotExists(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	info, err := os.Stat(absPath(ctx, body.Path))
	if err != nil || !info.IsDir() {
		return model.Pass()
	}
	return model.Fail(model.Violation{CheckId: id, Path: body.Path, Message: body.Message, Severity: sev})
}

func fileContentMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	content, err := ctx.ReadFile(body.Path)
	if err != nil {
		return model.Skipf("file %q missing or unreadable: %v", body.Path, err)
	}
	re := compiledRegex(body.Pattern)
	if re.Match(content) {
		return model.Pass()
	}
	return model.Fail(model.Violation{CheckId: id, Path: body.Path, Message: fmt.Sprintf("content does not match %q", body.Pattern), Severity: sev})
}

func fileContentNotMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	content, err := ctx.ReadFile(body.Path)
	if err != nil {
		return model.Pass() // missing file => Pass, per spec.md §4.5
	}
	re := compiledRegex(body.Pattern)
	if re.Match(content) {
		return model.Fail(model.Violation{CheckId: id, Path: body.Path, Message: fmt.Sprintf("content matches forbidden pattern %q", body.Pattern), Severity: sev})
	}
	return model.Pass()
}

func matchingFiles(ctx *model.ScanContext, glob string) []string {
	re := compiledGlob(glob)
	var out []string
	for _, f := range ctx.Files {
		if rules.MatchGlob(re, f) {
			out = append(out, f)
		}
	}
	return out
}

func globContentMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	files := matchingFiles(ctx, body.Glob)
	if len(files) == 0 {
		return model.Pass()
	}
	re := compiledRegex(body.Pattern)
	var violations []model.Violation
	for _, f := range files {
		content, err := ctx.ReadFile(f)
		if err != nil || !re.Match(content) {
			violations = append(violations, model.Violation{CheckId: id, Path: f, Message: fmt.Sprintf("content does not match %q", body.Pattern), Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

func globContentNotMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	files := matchingFiles(ctx, body.Glob)
	re := compiledRegex(body.Pattern)
	var exclude *regexp.Regexp
	if body.ExcludeGlob != "" {
		exclude = compiledRegex(body.ExcludeGlob)
	}

	var violations []model.Violation
	for _, f := range files {
		content, err := ctx.ReadFile(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(bytes.NewReader(content))
		for scanner.Scan() {
			line := scanner.Text()
			if re.MatchString(line) && (exclude == nil || !exclude.MatchString(line)) {
				violations = append(violations, model.Violation{CheckId: id, Path: f, Message: fmt.Sprintf("line matches forbidden pattern %q", body.Pattern), Severity: sev})
				break // first hit wins, per spec.md §4.5
			}
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

func excludedByPrefix(rel string, prefixes []string) bool {
	for _, p := range prefixes {
		if len(rel) >= len(p) && rel[:len(p)] == p {
			return true
		}
	}
	return false
}

func globNamingMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	files := matchingFiles(ctx, body.Glob)
	re := compiledRegex(body.Pattern)
	var violations []model.Violation
	for _, f := range files {
		if excludedByPrefix(f, body.ExcludePaths) {
			continue
		}
		name := filepath.Base(f)
		if !re.MatchString(name) {
			violations = append(violations, model.Violation{CheckId: id, Path: f, Message: fmt.Sprintf("filename does not match %q", body.Pattern), Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

func globNamingNotMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	files := matchingFiles(ctx, body.Glob)
	re := compiledRegex(body.Pattern)
	var violations []model.Violation
	for _, f := range files {
		if excludedByPrefix(f, body.ExcludePaths) {
			continue
		}
		name := filepath.Base(f)
		if re.MatchString(name) {
			violations = append(violations, model.Violation{CheckId: id, Path: f, Message: fmt.Sprintf("filename matches forbidden pattern %q", body.Pattern), Severity: sev})
		}
	}
	if len(violations) == 0 {
		return model.Pass()
	}
	return model.Fail(violations...)
}

func manifestKeyExists(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	if ctx.Manifest == nil || !ctx.Manifest.Present {
		return model.Skipf("no manifest present at project root")
	}
	if _, ok := manifest.LookupKey(ctx.Manifest, body.Key); ok {
		return model.Pass()
	}
	return model.Fail(model.Violation{CheckId: id, Message: fmt.Sprintf("manifest key %q is not set", body.Key), Severity: sev})
}

func manifestKeyMatches(ctx *model.ScanContext, id model.CheckId, sev model.Severity, body rules.Body) model.CheckResult {
	if ctx.Manifest == nil || !ctx.Manifest.Present {
		return model.Skipf("no manifest present at project root")
	}
	val, ok := manifest.LookupKey(ctx.Manifest, body.Key)
	if !ok {
		return model.Skipf("manifest key %q is not set", body.Key)
	}
	s, ok := val.(string)
	if !ok {
		s = fmt.Sprint(val)
	}
	re := compiledRegex(body.Pattern)
	if re.MatchString(s) {
		return model.Pass()
	}
	return model.Fail(model.Violation{CheckId: id, Message: fmt.Sprintf("manifest key %q value %q does not match %q", body.Key, s, body.Pattern), Severity: sev})
}
