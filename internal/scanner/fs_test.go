package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func TestScanFilesExcludesDefaultsAndDotfiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"README.md",
		"src/main.go",
		"node_modules/pkg/index.js",
		"target/debug/out",
		".git/HEAD",
	})

	files, err := ScanFiles(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "src/main.go"}, files)
}

func TestScanFilesHonorsExtraExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"build/out.bin", "README.md"})

	files, err := ScanFiles(root, []string{"build"})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, files)
}

func TestScanFilesSortedOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"b.txt", "a.txt", "c/nested.txt"})

	files, err := ScanFiles(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c/nested.txt"}, files)
}
