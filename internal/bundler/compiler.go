// Package bundler drives the fast dependency build: it compiles a
// dependency set into flattened, code-split chunks and reports the chunk
// topology through a Manifest.
package bundler

import (
	"context"
	"strings"
)

// Compiler is a capability that compiles a set of entries into an output
// directory and reports the resulting chunk topology.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Manifest, error)
}

// Entry is one build entry. Virtual entries carry their source in Contents
// and are reported in the manifest as "entry:<Name>".
type Entry struct {
	Name       string // output name without extension
	Path       string // input file; empty for virtual entries
	Contents   string
	ResolveDir string
}

// Virtual reports whether the entry is generated in memory.
func (e Entry) Virtual() bool {
	return e.Path == ""
}

// Request is a single compilation.
type Request struct {
	AppRoot string
	OutDir  string
	Entries []Entry
	Options Options
}

// Options are the compiler settings shared by the fast and federation
// stages.
type Options struct {
	Format     string // "esm", "cjs" or "iife"
	Splitting  bool
	Target     string
	Platform   string
	Minify     bool
	SourceMap  bool // external map files without a reference comment
	Define     map[string]string
	Alias      map[string]string
	MainFields []string
	Conditions []string
	Extensions []string
	External   []string
	Inject     []string
	ChunkNames string
}

// CompileError carries the diagnostics of a failed compilation.
type CompileError struct {
	Diagnostics []string
}

func (e *CompileError) Error() string {
	return "compilation failed: " + strings.Join(e.Diagnostics, "; ")
}
