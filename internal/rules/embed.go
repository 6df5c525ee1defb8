package rules

import _ "embed"

//go:embed catalog.yaml
var embeddedCatalog []byte

// DefaultCatalog returns the embedded rule catalog shipped with the
// binary, used when no config.RulesPath override is given (spec.md
// §4.6 step 4).
func DefaultCatalog() []byte {
	out := make([]byte, len(embeddedCatalog))
	copy(out, embeddedCatalog)
	return out
}
