package checks

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCtx writes files (relative path -> content) under a fresh temp
// directory and returns a ScanContext ready for predicate execution.
func newCtx(t *testing.T, files map[string]string) *model.ScanContext {
	t.Helper()
	root := t.TempDir()
	var rel []string
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		rel = append(rel, path)
	}
	sort.Strings(rel)
	return &model.ScanContext{
		Root:         root,
		Files:        rel,
		ContentCache: make(map[string][]byte),
		Manifest:     &model.ManifestView{Present: false},
	}
}

func TestFileExistsPassAndFail(t *testing.T) {
	ctx := newCtx(t, map[string]string{"README.md": "hello"})
	res := Execute(ctx, 1, model.SeverityError, rules.Body{Kind: rules.KindFileExists, Path: "README.md"})
	assert.Equal(t, model.StatusPass, res.Status)

	res = Execute(ctx, 1, model.SeverityError, rules.Body{Kind: rules.KindFileExists, Path: "MISSING.md"})
	assert.Equal(t, model.StatusFail, res.Status)
}

func TestFileContentNotMatchesPassesWhenFileMissing(t *testing.T) {
	ctx := newCtx(t, map[string]string{})
	res := Execute(ctx, 1, model.SeverityError, rules.Body{
		Kind: rules.KindFileContentNotMatches, Path: "src/main.go", Pattern: "unsafe",
	})
	assert.Equal(t, model.StatusPass, res.Status)
}

func TestGlobNamingNotMatchesHonorsExcludePaths(t *testing.T) {
	ctx := newCtx(t, map[string]string{
		"src/good_name.go":    "",
		"vendor/BadName.go":   "",
	})
	res := Execute(ctx, 1, model.SeverityWarning, rules.Body{
		Kind: rules.KindGlobNamingNotMatches, Glob: "**/*.go",
		Pattern: `^[A-Z]`, ExcludePaths: []string{"vendor/"},
	})
	assert.Equal(t, model.StatusPass, res.Status)
}

func TestGlobNamingNotMatchesFlagsViolationOutsideExclusion(t *testing.T) {
	ctx := newCtx(t, map[string]string{"src/BadName.go": ""})
	res := Execute(ctx, 1, model.SeverityWarning, rules.Body{
		Kind: rules.KindGlobNamingNotMatches, Glob: "**/*.go", Pattern: `^[A-Z]`,
	})
	require.Equal(t, model.StatusFail, res.Status)
	assert.Len(t, res.Violations, 1)
}

func TestManifestKeyExistsSkipsWithoutManifest(t *testing.T) {
	ctx := newCtx(t, map[string]string{})
	res := Execute(ctx, 1, model.SeverityError, rules.Body{Kind: rules.KindManifestKeyExists, Key: "package.license"})
	assert.Equal(t, model.StatusSkip, res.Status)
}

func TestGlobContentMatchesNoMatchingFilesPasses(t *testing.T) {
	ctx := newCtx(t, map[string]string{"README.md": "x"})
	res := Execute(ctx, 1, model.SeverityError, rules.Body{
		Kind: rules.KindGlobContentMatches, Glob: "**/*.proto", Pattern: "syntax",
	})
	assert.Equal(t, model.StatusPass, res.Status)
}
