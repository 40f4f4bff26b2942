package bundler

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Import kinds reported by esbuild's metafile.
const (
	KindImportStatement = "import-statement"
	KindDynamicImport   = "dynamic-import"
	KindRequireCall     = "require-call"
)

// Manifest maps an output path, relative to the app root and slash
// separated, to its chunk descriptor.
type Manifest map[string]Chunk

// Chunk describes one output file.
type Chunk struct {
	EntryPoint     string
	Exports        []string
	Imports        []Import
	Bytes          int
	UsesGlobalThis bool
}

// Import is a reference from one output to another output or an external.
type Import struct {
	Path     string
	Kind     string
	External bool
}

// Paths returns the output paths in sorted order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// HasExport reports whether the chunk exports name.
func (c Chunk) HasExport(name string) bool {
	for _, e := range c.Exports {
		if e == name {
			return true
		}
	}
	return false
}

type metafile struct {
	Outputs map[string]struct {
		EntryPoint string   `json:"entryPoint"`
		Exports    []string `json:"exports"`
		Bytes      int      `json:"bytes"`
		Imports    []struct {
			Path     string `json:"path"`
			Kind     string `json:"kind"`
			External bool   `json:"external"`
		} `json:"imports"`
	} `json:"outputs"`
}

// ParseMetafile converts esbuild's JSON metafile into a Manifest.
func ParseMetafile(data string) (Manifest, error) {
	var meta metafile
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("parsing metafile: %w", err)
	}

	m := make(Manifest, len(meta.Outputs))
	for path, out := range meta.Outputs {
		c := Chunk{
			EntryPoint: out.EntryPoint,
			Exports:    append([]string(nil), out.Exports...),
			Bytes:      out.Bytes,
		}
		sort.Strings(c.Exports)
		for _, imp := range out.Imports {
			c.Imports = append(c.Imports, Import{Path: imp.Path, Kind: imp.Kind, External: imp.External})
		}
		m[path] = c
	}
	return m, nil
}
