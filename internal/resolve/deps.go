// Package resolve computes the set of third-party packages reachable from
// an application's entry modules.
package resolve

import (
	"sort"
	"strings"
)

// DependencySet maps a package identifier (the import specifier, e.g.
// "lodash" or "@scope/pkg/sub") to its resolved entry file on disk.
type DependencySet map[string]string

// IDs returns the identifiers in sorted order.
func (d DependencySet) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is part of the set.
func (d DependencySet) Has(id string) bool {
	_, ok := d[id]
	return ok
}

// MatchAlias rewrites spec through the alias map. Keys match the whole
// specifier or a path prefix of it ("@/utils" matches "@/utils/date");
// the longest key wins.
func MatchAlias(alias map[string]string, spec string) (string, bool) {
	best := ""
	for key := range alias {
		if spec != key && !strings.HasPrefix(spec, key+"/") {
			continue
		}
		if len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", false
	}
	return alias[best] + strings.TrimPrefix(spec, best), true
}

// IsExcluded reports whether id is one of the excluded identifiers or a
// subpath of one.
func IsExcluded(id string, exclude []string) bool {
	for _, ex := range exclude {
		if id == ex || strings.HasPrefix(id, ex+"/") {
			return true
		}
	}
	return false
}

// IsPathLike reports whether spec names a file rather than a package.
func IsPathLike(spec string) bool {
	return strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") || (len(spec) > 1 && spec[1] == ':')
}
