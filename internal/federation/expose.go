// Package federation packages prebundled dependency chunks as a remote
// container that a separately compiled host build loads at runtime.
package federation

import (
	"path/filepath"
	"sort"

	"github.com/bianoble/prebundle/internal/bundler"
	"github.com/bianoble/prebundle/internal/resolve"
)

// ExposeMap maps a remote module name ("./<id>") to the prebundled chunk
// that implements it.
type ExposeMap map[string]string

// NewExposeMap exposes every dependency's flattened chunk in prebundleDir.
func NewExposeMap(deps resolve.DependencySet, prebundleDir string) ExposeMap {
	m := make(ExposeMap, len(deps))
	for id := range deps {
		m["./"+id] = filepath.Join(prebundleDir, bundler.FlattenID(id)+".js")
	}
	return m
}

// Names returns the exposed module names in sorted order.
func (e ExposeMap) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
