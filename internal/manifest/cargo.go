// Package manifest parses the audited project's manifest (C3). The
// catalog in spec.md §4.3 targets `<root>/Cargo.toml`; go-toml/v2
// (pulled transitively by spf13/viper in the retrieval pack's CloudSlash
// stack) gives us a faithful TOML reader plus a raw value tree for the
// dotted-key lookups ManifestKeyExists/ManifestKeyMatches need.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/pelletier/go-toml/v2"
)

const manifestFilename = "Cargo.toml"

type rawTarget struct {
	Name    string `toml:"name"`
	Path    string `toml:"path"`
	Harness *bool  `toml:"harness"`
}

type rawManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Lib struct {
		Path string `toml:"path"`
	} `toml:"lib"`
	Workspace  map[string]interface{} `toml:"workspace"`
	Bin        []rawTarget             `toml:"bin"`
	Test       []rawTarget             `toml:"test"`
	Bench      []rawTarget             `toml:"bench"`
	Example    []rawTarget             `toml:"example"`
}

// Read parses <root>/Cargo.toml into a model.ManifestView. A missing
// manifest is not an error: the returned view has Present == false, and
// rules that require a manifest must Skip (spec.md §4.3).
func Read(root string) (*model.ManifestView, error) {
	path := filepath.Join(root, manifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.ManifestView{Present: false}, nil
		}
		return nil, err
	}

	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var rawTree map[string]interface{}
	if err := toml.Unmarshal(data, &rawTree); err != nil {
		return nil, err
	}

	// Probe for the presence of a [lib] section distinctly from whether
	// it's merely the zero value once parsed into the typed struct.
	_, hasLibSection := rawTree["lib"]
	_, hasWorkspaceSection := rawTree["workspace"]

	view := &model.ManifestView{
		Present:      true,
		HasLib:       hasLibSection,
		HasWorkspace: hasWorkspaceSection,
		PackageName:  raw.Package.Name,
		Edition:      raw.Package.Edition,
		LibPath:      raw.Lib.Path,
		Raw:          rawTree,
	}
	for _, t := range raw.Bin {
		view.Bins = append(view.Bins, model.TargetEntry{Name: t.Name, Path: t.Path, Harness: t.Harness})
	}
	for _, t := range raw.Test {
		view.Tests = append(view.Tests, model.TargetEntry{Name: t.Name, Path: t.Path, Harness: t.Harness})
	}
	for _, t := range raw.Bench {
		view.Benches = append(view.Benches, model.TargetEntry{Name: t.Name, Path: t.Path, Harness: t.Harness})
	}
	for _, t := range raw.Example {
		view.Examples = append(view.Examples, model.TargetEntry{Name: t.Name, Path: t.Path, Harness: t.Harness})
	}

	return view, nil
}

// LookupKey walks a dotted key ("package.edition") through the raw
// value tree and returns the leaf value and whether it was present.
func LookupKey(view *model.ManifestView, dottedKey string) (interface{}, bool) {
	if view == nil || !view.Present {
		return nil, false
	}
	parts := strings.Split(dottedKey, ".")
	var cur interface{} = view.Raw
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
