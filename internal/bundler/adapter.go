package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/bianoble/prebundle/internal/cache"
	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/resolve"
	"github.com/rs/zerolog"
)

var (
	moduleSyntax  = regexp.MustCompile(`(?m)^\s*(export|import)[\s{*]`)
	defaultExport = regexp.MustCompile(`\bexport\s+default\b|\bas\s+default\b`)
)

// BundleCompileError reports a failed fast build.
type BundleCompileError struct {
	Diagnostics []string
}

func (e *BundleCompileError) Error() string {
	return "bundling dependencies failed: " + strings.Join(e.Diagnostics, "; ")
}

// Adapter compiles a dependency set into flattened chunks.
type Adapter struct {
	compiler Compiler
	logger   zerolog.Logger
}

// NewAdapter creates an adapter around compiler.
func NewAdapter(compiler Compiler, logger zerolog.Logger) *Adapter {
	return &Adapter{compiler: compiler, logger: logger}
}

// Bundle empties outDir, then compiles every dependency as its own entry
// named after its flattened id. Code shared between dependencies is split
// into chunks. The build either fully succeeds or returns an error.
func (a *Adapter) Bundle(ctx context.Context, appRoot string, deps resolve.DependencySet, rc config.Resolve, outDir string, custom config.Esbuild) (Manifest, error) {
	if err := cache.EmptyDir(outDir); err != nil {
		return nil, err
	}

	entries, err := proxyEntries(appRoot, deps)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return Manifest{}, nil
	}

	manifest, err := a.compiler.Compile(ctx, Request{
		AppRoot: appRoot,
		OutDir:  outDir,
		Entries: entries,
		Options: Options{
			Format:     "esm",
			Splitting:  true,
			Target:     custom.Target,
			Platform:   custom.Platform,
			Minify:     custom.Minify,
			Define:     custom.Define,
			Alias:      rc.Alias,
			MainFields: rc.MainFields,
			Conditions: rc.Conditions,
			Extensions: rc.Extensions,
			External:   custom.External,
			ChunkNames: custom.ChunkNames,
		},
	})
	if err != nil {
		var cerr *CompileError
		if errors.As(err, &cerr) {
			return nil, &BundleCompileError{Diagnostics: cerr.Diagnostics}
		}
		return nil, fmt.Errorf("bundling dependencies: %w", err)
	}

	a.logger.Debug().Int("deps", len(entries)).Int("chunks", len(manifest)).Msg("Bundled dependencies")
	return manifest, nil
}

// proxyEntries builds one virtual entry per dependency that re-exports the
// dependency's resolved module, keeping its default export when it has one.
func proxyEntries(appRoot string, deps resolve.DependencySet) ([]Entry, error) {
	owners := make(map[string]string)
	entries := make([]Entry, 0, len(deps))

	for _, id := range deps.IDs() {
		name := FlattenID(id)
		if prev, ok := owners[name]; ok {
			return nil, fmt.Errorf("dependencies '%s' and '%s' flatten to the same name '%s'", prev, id, name)
		}
		owners[name] = id

		path := deps[id]
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", id, err)
		}
		entries = append(entries, Entry{
			Name:       name,
			Contents:   proxySource(path, src),
			ResolveDir: appRoot,
		})
	}
	return entries, nil
}

// proxySource returns the re-export module for the file at path. CommonJS
// modules always expose module.exports as the default export.
func proxySource(path string, src []byte) string {
	spec := strconv.Quote(path)

	var b strings.Builder
	esm := moduleSyntax.Match(src)
	if !esm || defaultExport.Match(src) {
		fmt.Fprintf(&b, "import __default from %s;\nexport default __default;\n", spec)
	}
	fmt.Fprintf(&b, "export * from %s;\n", spec)
	return b.String()
}
