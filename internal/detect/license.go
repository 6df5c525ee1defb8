// Package detect implements the license/project-type and project-kind
// auto-detectors (C4).
package detect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/codenerd-labs/auditor/internal/model"
)

var licenseFilenames = []string{"LICENSE", "LICENSE.md", "LICENSE.txt"}

// openSourceMarkers is the fixed bag of license-identifying substrings
// from spec.md §4.4, checked against the uppercased file content.
var openSourceMarkers = []string{
	"MIT", "APACHE", "GNU GENERAL PUBLIC", "BSD", "MPL", "ISC", "BOOST",
	"UNLICENSE", "CREATIVE COMMONS", "EUPL", "OSL", "ARTISTIC", "ZLIB", "WTFPL",
}

// ProjectType inspects root's license files (in the §4.4 order) and
// returns OpenSource on the first marker hit, Internal otherwise.
func ProjectType(root string) model.ProjectType {
	for _, name := range licenseFilenames {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil || len(data) == 0 {
			continue
		}
		upper := strings.ToUpper(string(data))
		for _, marker := range openSourceMarkers {
			if strings.Contains(upper, marker) {
				return model.TypeOpenSource
			}
		}
	}
	return model.TypeInternal
}
