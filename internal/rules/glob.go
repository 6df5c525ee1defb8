package rules

import (
	"regexp"
	"strings"
)

// CompileGlob translates the catalog's glob syntax into a regexp that
// matches a full, '/'-separated relative path, per spec.md §4.5:
//
//	*   any run of non-'/' characters
//	**  any number of path segments, including zero
//	?   a single non-'/' character
//
// All other regex metacharacters in the glob are quoted literally.
func CompileGlob(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				// "**" optionally followed by "/" matches zero or more
				// whole path segments.
				i++
				if i+1 < len(runes) && runes[i+1] == '/' {
					b.WriteString("(?:.*/)?")
					i++
				} else {
					b.WriteString(".*")
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// MatchGlob reports whether rel (a '/'-separated relative path) matches
// the given compiled glob.
func MatchGlob(re *regexp.Regexp, rel string) bool {
	return re.MatchString(rel)
}
