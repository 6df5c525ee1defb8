package detect

import (
	"os"
	"path/filepath"

	"github.com/codenerd-labs/auditor/internal/model"
)

// ProjectKind classifies the audited project's structural shape from
// its manifest, falling back to filesystem probes when the manifest is
// silent, per spec.md §4.4's precedence rules.
func ProjectKind(root string, view *model.ManifestView) model.ProjectKind {
	if view != nil && view.Present {
		if view.HasWorkspace {
			return model.KindWorkspace
		}
		hasLib := view.HasLib
		hasBins := len(view.Bins) > 0
		switch {
		case hasLib && hasBins:
			return model.KindBoth
		case hasLib:
			return model.KindLibrary
		case hasBins:
			return model.KindBinary
		}
	}

	hasLibRs := fileExists(filepath.Join(root, "src", "lib.rs"))
	hasMainRs := fileExists(filepath.Join(root, "src", "main.rs")) ||
		fileExists(filepath.Join(root, "main", "src", "main.rs"))
	switch {
	case hasLibRs && hasMainRs:
		return model.KindBoth
	case hasMainRs:
		return model.KindBinary
	default:
		return model.KindLibrary
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
